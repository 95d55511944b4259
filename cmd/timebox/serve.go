package main

import (
	"context"
	"fmt"

	"github.com/hylla/timebox/internal/adapters/server"
	"github.com/hylla/timebox/internal/app"
	"github.com/spf13/cobra"
)

// serveRunner runs the HTTP surfaces; tests swap it to avoid binding ports.
var serveRunner = server.Run

func newServeCommand(opts *cliOptions) *cobra.Command {
	var bind, apiEndpoint, mcpEndpoint string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the tracker over a REST API and an MCP endpoint",
		Long: "serve keeps the countdown of the activity in progress running, rings the bell when it\n" +
			"runs out and exposes the tracker over HTTP until interrupted.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withSession(cmd.Context(), opts, "serve", func(s *session) error {
				cfg := server.Config{
					HTTPBind:      s.cfg.Server.Bind,
					APIEndpoint:   s.cfg.Server.APIEndpoint,
					MCPEndpoint:   s.cfg.Server.MCPEndpoint,
					ServerName:    opts.appName,
					ServerVersion: version,
				}
				flags := cmd.Flags()
				if flags.Changed("bind") {
					cfg.HTTPBind = bind
				}
				if flags.Changed("api-endpoint") {
					cfg.APIEndpoint = apiEndpoint
				}
				if flags.Changed("mcp-endpoint") {
					cfg.MCPEndpoint = mcpEndpoint
				}
				return serveTracker(cmd.Context(), s, cfg)
			})
		},
	}
	cmd.Flags().StringVar(&bind, "bind", "", "listen address (overrides server.bind)")
	cmd.Flags().StringVar(&apiEndpoint, "api-endpoint", "", "REST API mount path (overrides server.api_endpoint)")
	cmd.Flags().StringVar(&mcpEndpoint, "mcp-endpoint", "", "MCP mount path (overrides server.mcp_endpoint)")
	return cmd
}

// serveTracker drives the countdown alongside the HTTP server until either stops.
func serveTracker(ctx context.Context, s *session, cfg server.Config) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	driveDone := make(chan error, 1)
	go func() {
		driveDone <- s.store.Drive(ctx, tickerFactory, func(res app.TickResult) {
			if res.EnteredOvertime {
				s.logger.Warn("activity entered overtime", "activity_id", res.ActivityID)
			}
		})
	}()

	s.logger.Info("starting server", "bind", cfg.HTTPBind, "api", cfg.APIEndpoint, "mcp", cfg.MCPEndpoint)
	err := serveRunner(ctx, cfg, server.Dependencies{Tracker: s.store})
	cancel()
	<-driveDone
	s.store.StopTimer()
	if err := ignoreCanceled(err); err != nil {
		return fmt.Errorf("serve: %w", err)
	}
	return nil
}
