package main

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"github.com/thadeucbr/mcp-tools/app"
	"github.com/thadeucbr/mcp-tools/config"
	"github.com/thadeucbr/mcp-tools/logging"
	"github.com/thadeucbr/mcp-tools/middleware"
)

func newServeCmd(root *rootFlags) *cobra.Command {
	var transport, addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the MCP server",
		Long: `Start the MCP server.

Transports:
  stdio   newline-delimited JSON-RPC on stdin/stdout (default)
  http    POST /mcp, GET /health
  ws      WebSocket on /ws

meal_register is always available. The media tools need OPENAI_API_KEY and
the WhatsApp tools need WHATSAPP_BASE_URL.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(root.configPath, root.envFile)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("transport") {
				cfg.Server.Transport = transport
			}
			if cmd.Flags().Changed("addr") {
				cfg.Server.Addr = addr
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			logger, err := logging.New(nil, cfg.Log)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			connectCtx, cancel := context.WithTimeout(ctx, cfg.Mongo.ConnectTimeout+5*time.Second)
			a, err := app.New(connectCtx, cfg, logger)
			cancel()
			if err != nil {
				return err
			}
			defer func() {
				closeCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()
				if err := a.Close(closeCtx); err != nil {
					logger.Error("close failed", middleware.F("error", err.Error()))
				}
			}()

			err = a.Serve(ctx)
			if ctx.Err() != nil {
				logger.Info("shutdown complete")
				return nil
			}
			return err
		},
	}
	cmd.Flags().StringVar(&transport, "transport", config.TransportStdio, "stdio, http or ws")
	cmd.Flags().StringVar(&addr, "addr", ":8080", "listen address for http and ws")
	return cmd
}
