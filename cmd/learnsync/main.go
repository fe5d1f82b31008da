// Command learnsync serves the AI Learn screens over HTTP for a single
// signed-in user, keeping the session and cached data between requests.
package main

import (
	"context"
	"flag"
	"log"
	"os"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/logger"

	"github.com/ailearn/learnsync"
	fiberadapter "github.com/ailearn/learnsync/adapters/fiber"
	"github.com/ailearn/learnsync/config"
	"github.com/ailearn/learnsync/pkg/logging"
)

func main() {
	configPath := flag.String("config", "learnsync.yaml", "path to the YAML config file")
	flag.Parse()

	conf, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("config.Load: %v", err)
	}

	slogger := logging.New(conf.Log.Level, conf.Log.Format, os.Stderr)
	ctx := context.Background()

	storage, storageCloser, err := openStorage(ctx, conf.Storage)
	if err != nil {
		log.Fatalf("open storage: %v", err)
	}
	defer storageCloser.Close()

	cache, cacheEnabled, cacheCloser, err := openCache(ctx, conf.Cache)
	if err != nil {
		log.Fatalf("open cache: %v", err)
	}
	defer cacheCloser.Close()

	app := fiber.New()

	app.Use(logger.New(logger.Config{
		Format:     logFormat(),
		TimeFormat: "2006/01/02 15:04:05",
		TimeZone:   "Local",
	}))

	client, err := learnsync.New(learnsync.Config{
		BaseURL:      conf.API.BaseURL,
		Storage:      storage,
		Timeout:      conf.API.Timeout,
		UserAgent:    conf.API.UserAgent,
		CacheAdapter: cache,
		DisableCache: !cacheEnabled,
		LoginPath:    conf.Server.LoginPath,
		Logger:       slogger,
		HTTP:         fiberadapter.New(app),
	})
	if err != nil {
		log.Fatalf("could not create learnsync client: %v", err)
	}

	if err := client.Restore(ctx); err != nil {
		slogger.Warn("could not restore session", "error", err)
	}

	slogger.Info("listening", "addr", conf.Server.Addr, "api", conf.API.BaseURL)
	if err := app.Listen(conf.Server.Addr); err != nil {
		log.Fatalf("app.Listen: %v", err)
	}
}
