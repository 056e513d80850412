package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"content-crew/internal/adapter/httpapi"
	"content-crew/internal/di"
	"content-crew/internal/domain/entity"
	"content-crew/internal/infrastructure/config"
	"content-crew/internal/infrastructure/env"
)

func main() {
	configPath := flag.String("config", config.DefaultPath, "settings file")
	publish := flag.Bool("publish", true, "save approved articles as Markdown")
	flag.Parse()

	envService := env.NewEnvService()
	settings, err := config.Load(*configPath, envService)
	if err != nil {
		log.Fatalf("Failed to load settings: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	container, err := di.NewContainer(ctx, di.Config{Settings: *settings, LogName: "server"})
	if err != nil {
		log.Fatalf("Initialization failed: %v", err)
	}
	defer container.Close()

	opts := []httpapi.Option{
		httpapi.WithDefaults(entity.RunRequest{
			TargetLength: settings.Content.DefaultTargetLength,
			WritingStyle: settings.Content.WritingStyle,
		}),
	}
	if *publish {
		opts = append(opts, httpapi.WithPublisher(container.Publisher))
	}
	opts = append(opts, httpapi.WithArchive(container.Publisher))

	server := httpapi.NewServer(container.Pipeline, container.Logger, opts...)
	if err := server.ListenAndServe(ctx, settings.Server.Addr); err != nil {
		container.Logger.Error("Server stopped", "error", err)
		container.Close()
		os.Exit(1)
	}
	container.Logger.Info("Server stopped")
}
