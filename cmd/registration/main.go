// cmd/registration/main.go
package main

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"gymnexus/internal/app"
	"gymnexus/internal/cli"
	"gymnexus/internal/config"
	"gymnexus/internal/registration"
	"gymnexus/internal/telemetry"
)

const programName = "registration"

func main() {
	cli.Execute(cli.NewRootCommand(programName,
		"Personal information intake",
		run,
	))
}

func run(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	shutdownTracing, err := telemetry.SetupTracing(ctx, cfg.ServiceName+"-"+programName, cfg.Tracing, logger)
	if err != nil {
		return err
	}
	defer shutdownTracing(context.WithoutCancel(ctx))

	gormDB, err := registration.Open(cfg.DatabaseURL)
	if err != nil {
		return err
	}
	sqlDB, err := gormDB.DB()
	if err != nil {
		return err
	}
	defer sqlDB.Close()

	reg := telemetry.NewRegistry()
	// The postgres channel lives in the registration database, so an SQLite
	// store falls back to the in-memory channel.
	if gormDB.Dialector.Name() != "postgres" {
		cfg.ChannelBackend = config.ChannelBackendMemory
	}
	ch, err := app.OpenChannel(ctx, cfg, sqlDB, logger, reg)
	if err != nil {
		return err
	}

	api := &http.Server{
		Addr: cfg.RegistrationAddr(),
		Handler: app.NewRegistrationRouter(gormDB, app.Deps{
			Config:   cfg,
			Logger:   logger,
			Registry: reg,
			Channel:  ch,
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return cli.Serve(ctx, logger, cfg.ShutdownTimeout, api, telemetry.MetricsServer(cfg.MetricsAddr(), reg))
}
