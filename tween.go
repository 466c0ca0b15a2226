package main

import (
	"github.com/tanema/gween"
	"github.com/tanema/gween/ease"
)

type Action struct {
	nexts    []func(g *Game)
	onChange func(float32)
	onFinish []func()
}

func (a *Action) addOnFinish(f func()) {
	a.onFinish = append(a.onFinish, f)
}

// next chains t to start once the tween owning a finishes.
func (a *Action) next(t *gween.Tween) *Action {
	action := &Action{}
	a.nexts = append(a.nexts, func(g *Game) {
		g.Tweens[t] = action
	})
	return action
}

// updateTweens advances every tween by dt seconds and fires finished chains.
func (g *Game) updateTweens(dt float32) {
	for t, a := range g.Tweens {
		curr, finished := t.Update(dt)
		if a.onChange != nil {
			a.onChange(curr)
		}
		if finished {
			for _, onFinish := range a.onFinish {
				onFinish()
			}
			for _, next := range a.nexts {
				next(g)
			}
			delete(g.Tweens, t)
		}
	}
}

// pulseStatus fades the status line out and back in while disconnected, then repeats.
func (g *Game) pulseStatus() {
	if g.pulsing {
		return
	}
	g.pulsing = true
	setAlpha := func(v float32) { g.statusAlpha = float64(v) }

	out := &Action{onChange: setAlpha}
	back := out.next(gween.New(0.3, 1, 0.6, ease.InOutSine))
	back.onChange = setAlpha
	back.addOnFinish(func() {
		g.pulsing = false
		if !g.Session.Connected() {
			g.pulseStatus()
		} else {
			g.statusAlpha = 1
		}
	})
	g.Tweens[gween.New(1, 0.3, 0.6, ease.InOutSine)] = out
}
