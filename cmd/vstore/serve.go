package main

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/vango-dev/vango-sdk/internal/config"
	"github.com/vango-dev/vango-sdk/pkg/storage"
	"github.com/vango-dev/vango-sdk/pkg/storage/webbridge"
)

func serveCmd(configPath *string) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP inspector",
		Long: `Serve the storage inspector over HTTP.

Endpoints:
  /storage/keys         key listing and CRUD (see the inspector docs)
  /bridge/ws            WebSocket endpoint for browser window bridges
  /metrics              Prometheus metrics`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			if addr == "" {
				addr = cfg.Inspector.Addr
			}

			b, cleanup, err := openBacking(*configPath)
			if err != nil {
				return err
			}
			defer cleanup()

			storage.EnableMetrics()

			r := chi.NewRouter()
			r.Use(chimiddleware.Logger)
			r.Use(chimiddleware.Recoverer)
			r.Mount("/storage", storage.NewInspector(b).Routes())
			r.Mount("/bridge", webbridge.New().Routes())
			r.Handle("/metrics", promhttp.Handler())

			fmt.Printf("inspector listening on http://%s\n", addr)
			return http.ListenAndServe(addr, r)
		},
	}

	cmd.Flags().StringVarP(&addr, "addr", "a", "", "Listen address (default from vstore.toml)")
	return cmd
}
