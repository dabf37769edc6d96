package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"
	"github.com/joho/godotenv"
	prom "github.com/prometheus/client_golang/prometheus"

	"git.home.luguber.info/inful/sitegen/internal/assets"
	"git.home.luguber.info/inful/sitegen/internal/config"
	"git.home.luguber.info/inful/sitegen/internal/data"
	"git.home.luguber.info/inful/sitegen/internal/metrics"
	"git.home.luguber.info/inful/sitegen/internal/pipeline"
	"git.home.luguber.info/inful/sitegen/internal/preview"
	"git.home.luguber.info/inful/sitegen/internal/render"
	"git.home.luguber.info/inful/sitegen/internal/watcher"
)

var CLI struct {
	Config    string `short:"c" help:"Configuration file path" default:"sitegen.yaml" env:"SITEGEN_CONFIG"`
	Data      string `help:"Data directory" env:"SITEGEN_DATA_DIR"`
	Templates string `help:"Template directory" env:"SITEGEN_TEMPLATE_DIR"`
	Output    string `short:"o" help:"Output directory for the generated site" env:"SITEGEN_OUTPUT_DIR"`
	Verbose   bool   `short:"v" help:"Enable verbose logging"`

	Build struct{} `cmd:"" help:"Run one full build and exit"`

	Watch struct{} `cmd:"" help:"Build, then rebuild on file changes until interrupted"`

	Serve struct {
		Port int `short:"p" help:"Preview server port" default:"8080" env:"SITEGEN_PORT"`
	} `cmd:"" help:"Watch mode plus an HTTP preview server for the output directory"`
}

func main() {
	// .env is optional; process environment wins over file values.
	_ = godotenv.Load()

	kctx := kong.Parse(&CLI)

	logLevel := slog.LevelInfo
	if CLI.Verbose {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	cfg, err := config.Load(CLI.Config)
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}
	applyFlagOverrides(cfg)
	if err := cfg.Validate(); err != nil {
		slog.Error("Invalid configuration", "error", err)
		os.Exit(1)
	}

	registry := prom.NewRegistry()
	recorder := metrics.NewPrometheusRecorder(registry)

	pipe, err := buildPipeline(cfg, recorder)
	if err != nil {
		slog.Error("Failed to set up build pipeline", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	switch kctx.Command() {
	case "build":
		pipe.Run(ctx, "")
	case "watch":
		runWatch(ctx, cfg, pipe, nil)
	case "serve":
		server := preview.NewServer(cfg.OutputDir, CLI.Serve.Port, registry)
		runWatch(ctx, cfg, pipe, server)
	default:
		slog.Error("Unknown command", "command", kctx.Command())
		os.Exit(1)
	}
}

// applyFlagOverrides lets CLI flags and SITEGEN_* env values override the
// configuration file.
func applyFlagOverrides(cfg *config.SiteConfig) {
	if CLI.Data != "" {
		cfg.DataDir = CLI.Data
	}
	if CLI.Templates != "" {
		cfg.TemplateDir = CLI.Templates
	}
	if CLI.Output != "" {
		cfg.OutputDir = CLI.Output
	}
}

func buildPipeline(cfg *config.SiteConfig, recorder metrics.Recorder) (*pipeline.Pipeline, error) {
	loader := data.NewLoader(cfg.DataDir, recorder)
	renderer, err := render.NewRenderer(cfg.TemplateDir, cfg.OutputDir, cfg.PartialsDirName, recorder)
	if err != nil {
		return nil, err
	}
	copier := assets.NewCopier(cfg.TemplateDir, cfg.OutputDir, recorder)
	return pipeline.New(loader, renderer, copier, recorder), nil
}

// runWatch performs the initial full build, arms the watcher, and blocks
// until the context is canceled by an interrupt.
func runWatch(ctx context.Context, cfg *config.SiteConfig, pipe *pipeline.Pipeline, server *preview.Server) {
	pipe.Run(ctx, "")

	dispatcher, err := watcher.NewDispatcher(pipe, cfg.TemplateDir, cfg.DataDir)
	if err != nil {
		slog.Error("Failed to create file watcher", "error", err)
		os.Exit(1)
	}
	if err := dispatcher.Start(ctx); err != nil {
		slog.Error("Failed to start file watcher", "error", err)
		os.Exit(1)
	}

	if server != nil {
		server.Start()
	}

	<-ctx.Done()
	slog.Info("Shutting down")
	dispatcher.Stop()
	if server != nil {
		if err := server.Shutdown(context.Background()); err != nil {
			slog.Error("Preview server shutdown failed", "error", err)
		}
	}
}
