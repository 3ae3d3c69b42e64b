package cmd

import (
	"time"

	"github.com/inovacc/recstore/internal/engine"
	"github.com/inovacc/recstore/internal/server"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve actions over HTTP",
	Long: `Serve read, write, update, delete and clear over a JSON HTTP API.

Routes:
  GET    /health
  GET    /metrics
  GET    /api/collections
  GET    /api/collections/{name}/records?index=NAME
  POST   /api/collections/{name}/records          write
  PUT    /api/collections/{name}/records          update
  DELETE /api/collections/{name}/records/{key}    delete one key
  DELETE /api/collections/{name}/records?lower=K&upper=K&lower_open=B&upper_open=B
  POST   /api/collections/{name}/clear

Mutating routes accept ?durability=strict|relaxed; the default comes from the
config. Press ctrl+c to shut down.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		addr, _ := cmd.Flags().GetString("addr")
		grace, _ := cmd.Flags().GetDuration("shutdown-timeout")

		return withDB(cmd, func(db *engine.DB) error {
			srv := server.New(db,
				server.WithLogger(current.logger),
				server.WithMetrics(current.metrics),
				server.WithDurability(current.cfg.Durability()),
			)

			return srv.ListenAndServe(cmd.Context(), addr, grace)
		})
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().String("addr", "127.0.0.1:8080", "listen address")
	serveCmd.Flags().Duration("shutdown-timeout", 5*time.Second, "grace period for in-flight requests")
}
