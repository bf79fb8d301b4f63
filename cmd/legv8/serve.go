package main

import (
	"log/slog"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/ezrec/legv8/api"
)

func newServeCmd(opt *options) *cobra.Command {
	config := api.DefaultConfig()
	var logLevel string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve simulator sessions over HTTP and WebSocket",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			var level slog.Level
			err = level.UnmarshalText([]byte(logLevel))
			if err != nil {
				return
			}
			logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

			config.RunTimeout = opt.timeout
			config.Engine = opt.engineConfig()

			config.Defines = map[string]string{}
			err = opt.predefine(func(name, value string) {
				config.Defines[name] = value
			})
			if err != nil {
				return
			}
			srv := api.NewServer(config, logger)

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()

			return srv.ListenAndServe(ctx)
		},
	}

	cmd.Flags().StringVar(&config.Addr, "addr", config.Addr, "Listen address")
	cmd.Flags().IntVar(&config.MaxSessions, "max-sessions", config.MaxSessions, "Maximum number of HTTP sessions")
	cmd.Flags().StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")

	return cmd
}
