// cmd/membership/main.go
package main

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"gymnexus/internal/app"
	"gymnexus/internal/cli"
	"gymnexus/internal/config"
	"gymnexus/internal/telemetry"
)

const programName = "membership"

func main() {
	cli.Execute(cli.NewRootCommand(programName,
		"Users, membership types, discounts and memberships",
		run,
	))
}

func run(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	shutdownTracing, err := telemetry.SetupTracing(ctx, cfg.ServiceName+"-"+programName, cfg.Tracing, logger)
	if err != nil {
		return err
	}
	defer shutdownTracing(context.WithoutCancel(ctx))

	db, err := app.OpenDatabase(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer db.Close()

	reg := telemetry.NewRegistry()
	ch, err := app.OpenChannel(ctx, cfg, db, logger, reg)
	if err != nil {
		return err
	}

	api := &http.Server{
		Addr: cfg.MembershipAddr(),
		Handler: app.NewMembershipRouter(db, app.Deps{
			Config:   cfg,
			Logger:   logger,
			Registry: reg,
			Channel:  ch,
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return cli.Serve(ctx, logger, cfg.ShutdownTimeout, api, telemetry.MetricsServer(cfg.MetricsAddr(), reg))
}
