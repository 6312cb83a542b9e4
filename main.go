package main

import (
	"net/http"

	"collabdoc/config"
	"collabdoc/config/database"
	"collabdoc/pkg/logger"
	"collabdoc/router"
	"collabdoc/socket"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger.Init(cfg.Server.LogLevel)
	defer logger.Log.Sync()

	db := database.Connect(cfg.Database)
	defer db.Close()

	// The hub is the transport substrate: rooms, fan-out, presence
	// snapshots. Its event loop runs for the life of the process.
	hub := socket.NewHub()
	go hub.Run()

	handler := router.Setup(db, hub, cfg.JWT.Secret)

	addr := cfg.Server.Host + ":" + cfg.Server.Port
	logger.Sugar.Infof("collabdoc backend listening on %s", addr)
	if err := http.ListenAndServe(addr, handler); err != nil {
		logger.Sugar.Fatalf("Server stopped: %v", err)
	}
}
