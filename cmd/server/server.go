package main

import (
	"flag"
	"net/http"
	"os"

	"github.com/matryer/way"
	log "github.com/sirupsen/logrus"
	"github.com/zucenko/painter/server"
)

type Server struct {
	router     *way.Router
	GameServer *server.GameServer
}

func main() {
	configPath := flag.String("config", "", "room config json")
	debug := flag.Bool("debug", false, "debug logging")
	flag.Parse()
	if *debug {
		log.SetLevel(log.DebugLevel)
	}

	cfg := server.DefaultConfig()
	if *configPath != "" {
		var err error
		if cfg, err = server.LoadConfig(*configPath); err != nil {
			log.Fatalf("loading config: %v", err)
		}
	}

	s := Server{
		GameServer: server.NewGameServer(cfg),
	}
	go s.GameServer.Loop()
	s.routes()
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
		log.Printf("Defaulting to port %s", port)
	}
	log.Fatalln(http.ListenAndServe(":"+port, s.router))
}
