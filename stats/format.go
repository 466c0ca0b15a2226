package stats

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/hako/durafmt"
)

// Lines renders a snapshot as short HUD lines.
func (s Snapshot) Lines() []string {
	var lines []string
	if s.HaveStats {
		lines = append(lines,
			fmt.Sprintf("cells painted: %s", humanize.Comma(int64(s.Stats.TotalCells))),
			fmt.Sprintf("games: %s", humanize.Comma(int64(s.Stats.GamesPlayed))),
			fmt.Sprintf("played: %s", durafmt.Parse(s.Stats.PlayTime()).LimitFirstN(2).String()),
		)
		if !s.Stats.LastSeen.IsZero() {
			lines = append(lines, "last seen "+humanize.Time(s.Stats.LastSeen))
		}
	}
	for i, e := range s.Top {
		lines = append(lines, fmt.Sprintf("%d. %s %s", i+1, e.Username, humanize.Comma(int64(e.TotalCells))))
	}
	return lines
}
