// Command app is the procurement core's entrypoint, mirroring the
// teacher's cmd/app/main.go: load config, initialize the logger, hand
// off to internal/bootstrap, run until shutdown.
package main

import (
	"context"
	"log"

	"github.com/Lucasschwertz/procurement-core/internal/bootstrap"
)

func main() {
	cfg, err := bootstrap.NewConfig()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	app, err := bootstrap.InitServersWithOptions(context.Background(), cfg, nil)
	if err != nil {
		log.Fatalf("init servers: %v", err)
	}

	defer func() { _ = app.Close() }()

	server := bootstrap.NewServer(cfg, app.Router(), app.Logger)

	if err := server.Run(); err != nil {
		app.Logger.Fatalf("server: %v", err)
	}
}
