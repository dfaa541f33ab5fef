package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kong"

	"git.home.luguber.info/inful/mdsite/internal/config"
	"git.home.luguber.info/inful/mdsite/internal/logfields"
	"git.home.luguber.info/inful/mdsite/internal/markdown"
	"git.home.luguber.info/inful/mdsite/internal/serve"
	"git.home.luguber.info/inful/mdsite/internal/site"
	"git.home.luguber.info/inful/mdsite/internal/version"
)

var CLI struct {
	Config  string `short:"c" help:"Configuration file path" default:"config.yaml"`
	Verbose bool   `short:"v" help:"Enable verbose logging"`

	Build struct {
		Output string `short:"o" help:"Output directory for the generated site (overrides config)"`
	} `cmd:"" help:"Convert the source directory into a static site"`

	Convert struct {
		File string `arg:"" help:"Markdown file to convert" type:"existingfile"`
	} `cmd:"" help:"Render a single markdown file to HTML on stdout"`

	Serve struct {
		Port            int           `short:"p" help:"Port to listen on" default:"8080"`
		RebuildInterval time.Duration `help:"Rebuild the site at this interval (0 disables)"`
	} `cmd:"" help:"Build, serve, and rebuild the site on source changes"`

	Init struct {
		Force bool `help:"Overwrite existing configuration file"`
	} `cmd:"" help:"Initialize a new configuration file"`

	Version struct{} `cmd:"" help:"Print version information"`
}

func main() {
	ctx := kong.Parse(&CLI)

	// Set up logging
	logLevel := slog.LevelInfo
	if CLI.Verbose {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	switch ctx.Command() {
	case "build":
		cfg, err := config.Load(CLI.Config)
		if err != nil {
			slog.Error("Failed to load configuration", logfields.Error(err))
			os.Exit(1)
		}
		if err := runBuild(cfg, CLI.Build.Output); err != nil {
			slog.Error("Build failed", logfields.Error(err))
			os.Exit(1)
		}
	case "convert <file>":
		if err := runConvert(CLI.Convert.File); err != nil {
			slog.Error("Convert failed", logfields.Error(err))
			os.Exit(1)
		}
	case "serve":
		cfg, err := config.Load(CLI.Config)
		if err != nil {
			slog.Error("Failed to load configuration", logfields.Error(err))
			os.Exit(1)
		}
		if err := runServe(cfg); err != nil {
			slog.Error("Serve failed", logfields.Error(err))
			os.Exit(1)
		}
	case "init":
		if err := runInit(CLI.Config, CLI.Init.Force); err != nil {
			slog.Error("Init failed", logfields.Error(err))
			os.Exit(1)
		}
	case "version":
		fmt.Printf("mdsite %s (commit %s, built %s)\n", version.Version, version.GitCommit, version.BuildTime)
	}
}

func runBuild(cfg *config.Config, outputDir string) error {
	generator, err := site.NewGenerator(cfg, outputDir)
	if err != nil {
		return err
	}

	slog.Info("Starting site build",
		logfields.Source(cfg.Source.Directory),
		logfields.Output(generator.OutputDir()))

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	report, err := generator.GenerateSite(ctx)
	if err != nil {
		return err
	}
	if report.FailedArticles > 0 {
		slog.Warn("Build completed with failures", slog.Int("failed_articles", report.FailedArticles))
	}
	return nil
}

func runConvert(path string) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// The single-file mode reads no config file; defaults apply.
	html, err := site.ConvertFile(ctx, path, markdown.Options{HighlightStyle: config.DefaultHighlight})
	if err != nil {
		return err
	}
	_, err = os.Stdout.Write(html)
	return err
}

func runServe(cfg *config.Config) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	return serve.Run(ctx, cfg, serve.Options{
		Port:            CLI.Serve.Port,
		RebuildInterval: CLI.Serve.RebuildInterval,
	})
}

func runInit(configPath string, force bool) error {
	slog.Info("Initializing configuration", logfields.Path(configPath), slog.Bool("force", force))
	return config.Init(configPath, force)
}
