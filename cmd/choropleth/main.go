package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/danielgtaylor/huma/v2/humacli"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/joeblew999/plat-choropleth/internal/api"
	"github.com/joeblew999/plat-choropleth/internal/config"
	"github.com/joeblew999/plat-choropleth/internal/server"
	"github.com/joeblew999/plat-choropleth/internal/service"
)

// Options defines all CLI flags and env vars for the map server.
// Flags: --host, --port, --data-file, --web-dir, --config, --catalog, --log-level, --log-format
// Env vars: SERVICE_HOST, SERVICE_PORT, SERVICE_DATA_FILE, ...
type Options struct {
	Host      string `doc:"Host to bind to" default:"0.0.0.0"`
	Port      int    `doc:"Port to listen on" short:"p" default:"8086"`
	DataFile  string `doc:"TopoJSON document, a path or an http(s) URL" default:"desa.json"`
	WebDir    string `doc:"Serve templates and static files from this directory instead of the embedded copy"`
	Config    string `doc:"Map config file (map.yaml in the working directory when empty)"`
	Catalog   bool   `doc:"Load the regions into an in-memory DuckDB catalog"`
	LogLevel  string `doc:"Log level, overrides the config file"`
	LogFormat string `doc:"Log format (json or console), overrides the config file"`
}

// setup loads the map config and installs the global logger.
func setup(opts *Options) (*config.Config, error) {
	cfg, err := config.Load(opts.Config)
	if err != nil {
		return nil, err
	}
	if opts.LogLevel != "" {
		cfg.Log.Level = opts.LogLevel
	}
	if opts.LogFormat != "" {
		cfg.Log.Format = opts.LogFormat
	}
	if err := config.InitLogger(cfg.Log); err != nil {
		return nil, err
	}
	return cfg, nil
}

func newServer(ctx context.Context, opts *Options, cfg *config.Config) (*server.Server, error) {
	return server.New(ctx, server.Config{
		Host:     opts.Host,
		Port:     fmt.Sprintf("%d", opts.Port),
		DataFile: opts.DataFile,
		WebDir:   opts.WebDir,
		Catalog:  opts.Catalog,
		Map:      cfg,
	})
}

func fatal(msg string, err error) {
	fmt.Fprintf(os.Stderr, "%s: %v\n", msg, err)
	os.Exit(1)
}

func main() {
	var mapCfg *config.Config

	cli := humacli.New(func(hooks humacli.Hooks, opts *Options) {
		cfg, err := setup(opts)
		if err != nil {
			fatal("Error loading config", err)
		}
		mapCfg = cfg

		ctx, cancel := context.WithCancel(context.Background())
		httpServer := &http.Server{
			Addr:              fmt.Sprintf("%s:%d", opts.Host, opts.Port),
			ReadHeaderTimeout: 10 * time.Second,
		}
		var srv *server.Server

		hooks.OnStart(func() {
			srv, err = newServer(ctx, opts, cfg)
			if err != nil {
				zap.L().Fatal("main: create server", zap.Error(err))
			}
			srv.Start(ctx)
			httpServer.Handler = srv

			displayHost := opts.Host
			if displayHost == "0.0.0.0" {
				displayHost = "localhost"
			}
			baseURL := fmt.Sprintf("http://%s:%d", displayHost, opts.Port)

			fmt.Println()
			fmt.Printf("plat-choropleth server starting...\n")
			fmt.Printf("  Server:  %s\n", baseURL)
			fmt.Printf("  Data:    %s\n", opts.DataFile)
			fmt.Println()
			fmt.Printf("  Map:     %s/\n", baseURL)
			fmt.Printf("  Docs:    %s/docs\n", baseURL)
			fmt.Printf("  OpenAPI: %s/openapi.json\n", baseURL)
			fmt.Printf("  Metrics: %s/metrics\n", baseURL)
			fmt.Println()

			if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				zap.L().Fatal("main: server error", zap.Error(err))
			}
		})

		hooks.OnStop(func() {
			cancel()
			shutdownCtx, done := context.WithTimeout(context.Background(), 5*time.Second)
			defer done()
			if err := httpServer.Shutdown(shutdownCtx); err != nil {
				zap.L().Warn("main: shutdown", zap.Error(err))
			}
			if srv != nil {
				if err := srv.Close(); err != nil {
					zap.L().Warn("main: close server", zap.Error(err))
				}
			}
			_ = zap.L().Sync()
		})
	})

	cli.Root().Use = "choropleth"
	cli.Root().Short = "Village choropleth map server"
	cli.Root().Version = api.Version

	// spec subcommand: export OpenAPI spec
	specCmd := &cobra.Command{
		Use:   "spec",
		Short: "Export OpenAPI spec (JSON by default, --yaml for YAML)",
		Run: humacli.WithOptions(func(cmd *cobra.Command, args []string, opts *Options) {
			srv, err := newServer(cmd.Context(), opts, mapCfg)
			if err != nil {
				fatal("Error creating server", err)
			}
			defer srv.Close()
			spec := srv.OpenAPI()

			useYAML, _ := cmd.Flags().GetBool("yaml")

			var output []byte
			if useYAML {
				output, err = yaml.Marshal(spec)
			} else {
				output, err = json.MarshalIndent(spec, "", "  ")
			}
			if err != nil {
				fatal("Error marshaling spec", err)
			}
			fmt.Println(string(output))
		}),
	}
	specCmd.Flags().BoolP("yaml", "y", false, "Output as YAML instead of JSON")
	cli.Root().AddCommand(specCmd)

	// stats subcommand: count and total area of a document
	statsCmd := &cobra.Command{
		Use:   "stats <file>",
		Short: "Print the region count and total area of a TopoJSON document",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			ds := loadDataset(cmd.Context(), args[0], mapCfg)
			stats, err := ds.Stats()
			if err != nil {
				fatal("Error reading stats", err)
			}
			view := ds.Format().Stats(stats)
			info := ds.Info()

			t := table.NewWriter()
			t.SetOutputMirror(os.Stdout)
			t.AppendHeader(table.Row{"Object", "Size", "Total Desa", "Luas Total"})
			t.AppendRow(table.Row{info.Object, info.Size, view.Count, view.TotalArea})
			t.SetStyle(table.StyleColoredBright)
			t.Render()
		},
	}
	cli.Root().AddCommand(statsCmd)

	// regions subcommand: one row per region
	regionsCmd := &cobra.Command{
		Use:   "regions <file>",
		Short: "List the regions of a TopoJSON document with their info panel values",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			limit, _ := cmd.Flags().GetInt("limit")
			ds := loadDataset(cmd.Context(), args[0], mapCfg)
			regions, total, err := ds.Regions(0, limit)
			if err != nil {
				fatal("Error listing regions", err)
			}

			t := table.NewWriter()
			t.SetOutputMirror(os.Stdout)
			t.AppendHeader(table.Row{"ID", "Desa/Kel", "Kecamatan", "Kabupaten", "Luas"})
			for _, r := range regions {
				t.AppendRow(table.Row{r.ID, r.Name, r.District, r.Regency, r.AreaText})
			}
			t.AppendSeparator()
			t.AppendFooter(table.Row{"", "", "", fmt.Sprintf("%d of %d", len(regions), total), ""})
			t.SetStyle(table.StyleColoredBright)
			t.Render()
		},
	}
	regionsCmd.Flags().IntP("limit", "n", 0, "Maximum number of regions to list (0 for all)")
	cli.Root().AddCommand(regionsCmd)

	cli.Run()
}

// loadDataset reads and converts a document with the configured fields.
func loadDataset(ctx context.Context, src string, cfg *config.Config) *service.DatasetService {
	if ctx == nil {
		ctx = context.Background()
	}
	if cfg == nil {
		cfg = config.Default()
	}
	ds := service.NewDatasetService(service.DatasetConfig{
		Source:  src,
		Timeout: time.Duration(cfg.Load.TimeoutSecs) * time.Second,
		Fields:  cfg.PropertyFields(),
		Format:  cfg.Formatter(),
	})
	if err := ds.Load(ctx); err != nil {
		fatal("Error loading "+src, err)
	}
	return ds
}
