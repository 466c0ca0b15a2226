package main

import (
	"flag"
	"os"

	log "github.com/sirupsen/logrus"
	"github.com/zucenko/painter/session"
)

// loadConfig layers defaults, the optional JSON file, environment and flags, in that order.
func loadConfig(args []string) (session.Config, error) {
	fs := flag.NewFlagSet("painter", flag.ContinueOnError)
	path := fs.String("config", "", "client config json")
	username := fs.String("username", "", "player name")
	server := fs.String("server", "", "room websocket url")
	api := fs.String("api", "", "profile and stats service url")
	room := fs.String("room", "", "room name")
	debug := fs.Bool("debug", false, "debug logging")
	if err := fs.Parse(args); err != nil {
		return session.Config{}, err
	}

	cfg := session.DefaultConfig()
	if *path != "" {
		var err error
		if cfg, err = session.LoadConfig(*path); err != nil {
			return cfg, err
		}
	}
	cfg.ApplyEnv(os.Getenv)

	override(&cfg.Username, *username)
	override(&cfg.ServerURL, *server)
	override(&cfg.APIURL, *api)
	override(&cfg.Room, *room)
	if *debug {
		cfg.LogLevel = "debug"
	}

	level, err := log.ParseLevel(cfg.LogLevel)
	if err != nil {
		return cfg, err
	}
	log.SetLevel(level)

	return cfg, cfg.Validate()
}

func override(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
