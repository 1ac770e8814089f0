// Package main runs the push-up journey MCP server over stdio, for local assistants.
// The same server is mounted on the HTTP service at /mcp.
package main

import (
	"context"
	"flag"
	"os"
	"time"

	"github.com/2beens/pushupjourney/internal/config"
	"github.com/2beens/pushupjourney/internal/logging"
	"github.com/2beens/pushupjourney/internal/notify"
	"github.com/2beens/pushupjourney/internal/progress"
	progressmcp "github.com/2beens/pushupjourney/internal/progress/mcp"
	"github.com/2beens/pushupjourney/internal/store"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	log "github.com/sirupsen/logrus"
)

func main() {
	env := flag.String("env", "development", "environment [prod | production | dev | development]")
	configPath := flag.String("config", "./config.toml", "path to TOML config file")
	flag.Parse()

	// stdout belongs to the MCP transport
	log.SetOutput(os.Stderr)

	cfg, err := config.Load(*env, *configPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	log.SetLevel(logging.GetLevel(cfg.LogLevel))

	loc, err := cfg.Location()
	if err != nil {
		log.Fatalf("timezone: %v", err)
	}

	ctx := context.Background()
	s, err := store.New(ctx, store.ParamsFromConfig(cfg, os.Getenv("PUSHUPS_REDIS_PASS")))
	if err != nil {
		log.Fatalf("open store: %v", err)
	}
	defer func() {
		if err := s.Close(); err != nil {
			log.Errorf("close store: %v", err)
		}
	}()

	settings := notify.NewSettingsStore(s)
	service := progress.NewService(progress.ServiceParams{
		Store:      s,
		Dispatcher: notify.NewLogDispatcher(nil),
		Settings:   settings,
		Schedule:   progress.DefaultSchedule(),
		Now: func() time.Time {
			return time.Now().In(loc)
		},
	})
	service.Load(ctx)

	server := progressmcp.NewServer(service)
	if err := server.Run(ctx, &mcp.StdioTransport{}); err != nil {
		log.Errorf("mcp server: %v", err)
	}
}
