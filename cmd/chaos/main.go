// cmd/chaos/main.go
package main

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"gymnexus/chaos"
	"gymnexus/internal/app"
	"gymnexus/internal/cli"
	"gymnexus/internal/config"
)

var pause time.Duration

func main() {
	root := cli.NewRootCommand("chaos",
		"Run the chaos game day against a running membership service",
		run,
	)
	root.Flags().DurationVar(&pause, "pause", 5*time.Second, "pause between scenarios")
	cli.Execute(root)
}

func run(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	target := chaos.Target{
		BaseURL:    cfg.MembershipURL,
		HTTPClient: &http.Client{Timeout: 10 * time.Second},
	}
	// The redelivery drill needs direct channel access, which only the
	// postgres backend offers across processes.
	if cfg.ChannelBackend == config.ChannelBackendPostgres {
		db, err := app.OpenDatabase(ctx, cfg, logger)
		if err != nil {
			return err
		}
		defer db.Close()
		ch, err := app.OpenChannel(ctx, cfg, db, logger, nil)
		if err != nil {
			return err
		}
		target.Publisher = ch.Publisher
		target.Consumers = ch.Consumers
	}

	engine := chaos.NewEngine(logger)
	engine.RegisterExperiments(target)

	return engine.ExecuteGameDay(ctx, chaos.GameDay{
		Name:      "Weekly Chaos Game Day",
		Date:      time.Now(),
		Scenarios: engine.Experiments(),
		Pause:     pause,
	})
}
