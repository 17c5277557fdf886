package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/BearBump/FreshTrack/config"
	"github.com/joho/godotenv"
)

func main() {
	if err := godotenv.Load(); err != nil {
		slog.Info("no .env file loaded", "err", err)
	}

	cfgPath := os.Getenv("configPath")
	if cfgPath == "" {
		panic("configPath env var is required")
	}
	cfg, err := config.LoadConfig(cfgPath)
	if err != nil {
		panic(fmt.Sprintf("ошибка парсинга конфига, %v", err))
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	opts := workerRunOpts{swaggerPath: os.Getenv("workerSwaggerPath")}
	if err := RunRouteWorker(ctx, cfg, defaultWorkerFactories(), opts); err != nil && !errors.Is(err, context.Canceled) {
		panic(err)
	}
}
