package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"mcpchat/internal/adapter/cli"
	"mcpchat/internal/adapter/cli/uxerror"
	"mcpchat/internal/adapter/llm"
	"mcpchat/internal/adapter/mcp"
	"mcpchat/internal/domain"
	"mcpchat/internal/infra/config"
	"mcpchat/internal/infra/logger"
	"mcpchat/internal/infra/metrics"
	"mcpchat/internal/infra/tracer"
	"mcpchat/internal/usecase"
)

func main() {
	opts, err := parseArgs(os.Args[1:])
	if errors.Is(err, errHelp) {
		showUsage(os.Stdout)
		return
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n%s\n", err, usageLine)
		os.Exit(1)
	}

	if err := run(opts); err != nil {
		fmt.Fprintln(os.Stderr, uxerror.Humanize(err).Render())
		os.Exit(1)
	}
}

func run(opts options) error {
	// 1. Config
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	// 2. Logger & Tracer
	log, logCloser, err := logger.New(cfg.Logger)
	if err != nil {
		return fmt.Errorf("logger: %w", err)
	}
	defer logCloser()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	tracerShutdown, err := tracer.Setup(ctx, cfg.Tracer)
	if err != nil {
		return fmt.Errorf("tracer: %w", err)
	}
	defer tracerShutdown(context.Background())

	// 3. Metrics
	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		m = metrics.New()
		go func() {
			if err := m.Serve(ctx, cfg.Metrics.Addr, log); err != nil {
				log.Error("metrics server error", "error", err)
			}
		}()
	}

	// 4. Model provider. A missing API key fails here, before any connection.
	provider, err := llm.NewProvider(cfg.LLM, log)
	if err != nil {
		return err
	}

	// 5. Tool server
	ep, err := cfg.ResolveEndpoint(opts.Endpoint)
	if err != nil {
		return err
	}

	deps := usecase.ClientDeps{
		Transport:         mcp.NewTransport(cfg.Client, log),
		Provider:          provider,
		Logger:            log,
		Model:             cfg.LLM.Model,
		Temperature:       cfg.LLM.Temperature,
		ValidateArguments: cfg.Client.ValidateArguments,
		Metrics:           m,
	}
	renderer := cli.NewRenderer(opts.Raw, 0)

	if opts.Query != "" {
		answer := usecase.NewQueryService(deps).ProcessQuery(ctx, opts.Query, ep)
		fmt.Println(renderer.Render(answer))
		return nil
	}

	return chat(ctx, deps, ep, renderer, log)
}

// chat connects once and runs the interactive loop. Cleanup runs on every exit path.
func chat(ctx context.Context, deps usecase.ClientDeps, ep domain.Endpoint, renderer *cli.Renderer, log *slog.Logger) error {
	client := usecase.NewClient(deps)
	defer func() {
		cleanupCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := client.Cleanup(cleanupCtx); err != nil {
			log.Error("cleanup error", "error", err)
		}
	}()

	if err := client.Connect(ctx, ep); err != nil {
		return err
	}
	fmt.Println(cli.ToolsBanner(client.ToolNames()))

	err := cli.NewREPL(os.Stdin, os.Stdout, client, renderer, log).Run(ctx)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
