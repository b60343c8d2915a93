package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hakim/reconaug/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	Long: `Serve the HTTP API: start scans, port scans and historical URL
collection, poll or stream job progress (server-sent events), and browse
stored results.

Finished jobs are kept in memory for jobs.retention and then collected.
When redis.enabled is set, every job update is mirrored to redis.stream.

Examples:
  reconaug serve
  reconaug serve --listen 0.0.0.0:8080`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if listen, _ := cmd.Flags().GetString("listen"); listen != "" {
			cfg.Server.Listen = listen
		}

		ctx, stop := signalContext()
		defer stop()

		a, err := openApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		go a.registry.Run(ctx)

		fmt.Printf("[*] ReconAug API listening on http://%s\n", cfg.Server.Listen)
		if a.redis != nil {
			fmt.Printf("[*] Mirroring job progress to Redis stream %s\n", cfg.Redis.Stream)
		}

		srv := server.New(cfg.Server, a.orch, a.store, logger)
		if err := srv.Run(ctx); err != nil {
			return err
		}

		fmt.Println("[*] Server stopped")
		return nil
	},
}

func init() {
	serveCmd.Flags().String("listen", "", "Listen address (overrides server.listen)")
	rootCmd.AddCommand(serveCmd)
}
