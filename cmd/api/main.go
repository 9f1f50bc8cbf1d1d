// cmd/api/main.go
package main

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"gymnexus/internal/app"
	"gymnexus/internal/cli"
	"gymnexus/internal/config"
)

func main() {
	cli.Execute(cli.NewRootCommand("api",
		"API gateway in front of the membership and registration services",
		run,
	))
}

func run(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	gw, err := app.NewGateway(cfg.MembershipURL, cfg.RegistrationURL, logger)
	if err != nil {
		return err
	}
	srv := &http.Server{
		Addr:              cfg.GatewayAddr(),
		Handler:           gw,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return cli.Serve(ctx, logger, cfg.ShutdownTimeout, srv)
}
