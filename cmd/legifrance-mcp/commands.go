package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-training/mcp-legifrance/pkg/config"
	"github.com/go-training/mcp-legifrance/pkg/legifrance"
	"github.com/go-training/mcp-legifrance/pkg/logger"
	"github.com/go-training/mcp-legifrance/pkg/operation"
	"github.com/go-training/mcp-legifrance/pkg/prompt"
	"github.com/go-training/mcp-legifrance/pkg/ratelimit"
	"github.com/go-training/mcp-legifrance/pkg/server"

	"github.com/appleboy/graceful"
	"github.com/urfave/cli/v3"
)

const shutdownTimeout = 10 * time.Second

func newCommand() *cli.Command {
	return &cli.Command{
		Name:           "legifrance-mcp",
		Usage:          "Legifrance legal research MCP server",
		Version:        server.Version,
		DefaultCommand: "serve",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "path to a TOML configuration file",
				Sources: cli.EnvVars("LEGIFRANCE_MCP_CONFIG"),
			},
			&cli.StringSliceFlag{
				Name:  "env-file",
				Usage: "dotenv files loaded before reading the environment",
				Value: []string{".env"},
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "DEBUG, INFO, WARN or ERROR",
			},
			&cli.StringFlag{
				Name:  "log-format",
				Usage: "text or json",
			},
		},
		Commands: []*cli.Command{
			serveCommand(),
			pingCommand(),
			toolsCommand(),
		},
	}
}

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "serve the MCP tools and prompts",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "transport",
				Aliases: []string{"t"},
				Usage:   "transport type (stdio or http)",
			},
			&cli.StringFlag{
				Name:  "addr",
				Usage: "address to listen on with the http transport",
			},
		},
		Action: runServe,
	}
}

func pingCommand() *cli.Command {
	return &cli.Command{
		Name:  "ping",
		Usage: "check connectivity and credentials against the Legifrance API",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg, log, err := setup(cmd)
			if err != nil {
				return err
			}
			client, err := newClient(ctx, cfg, log)
			if err != nil {
				return err
			}
			defer client.Close()

			res, err := client.Get(ctx, "consult/ping", nil)
			if err != nil {
				return err
			}
			return printValue(cmd, res)
		},
	}
}

func toolsCommand() *cli.Command {
	return &cli.Command{
		Name:  "tools",
		Usage: "list the registered tools and prompts",
		Action: func(_ context.Context, cmd *cli.Command) error {
			w := cmd.Root().Writer
			for _, name := range operation.LegalTools(nil).Names() {
				fmt.Fprintln(w, "tool", name)
			}
			catalog, err := prompt.Default()
			if err != nil {
				return err
			}
			for _, name := range catalog.Names() {
				fmt.Fprintln(w, "prompt", name)
			}
			return nil
		},
	}
}

// overrides collects the flags explicitly set on the command line.
func overrides(cmd *cli.Command) map[string]any {
	keys := map[string]string{
		"transport":  "server.transport",
		"addr":       "server.addr",
		"log-level":  "log.level",
		"log-format": "log.format",
	}
	out := map[string]any{}
	for flag, key := range keys {
		if cmd.IsSet(flag) {
			out[key] = cmd.String(flag)
		}
	}
	return out
}

func setup(cmd *cli.Command) (*config.Config, *slog.Logger, error) {
	if err := config.LoadDotEnv(cmd.StringSlice("env-file")...); err != nil {
		return nil, nil, err
	}
	cfg, err := config.Load(config.Options{
		File:      cmd.String("config"),
		Overrides: overrides(cmd),
	})
	if err != nil {
		return nil, nil, err
	}
	log, err := logger.New(logger.Options{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
	})
	if err != nil {
		return nil, nil, err
	}
	return cfg, log, nil
}

func newClient(ctx context.Context, cfg *config.Config, log *slog.Logger) (*legifrance.Client, error) {
	opts := []legifrance.Option{legifrance.WithLogger(log)}
	if cfg.Legifrance.Token != "" {
		opts = append(opts, legifrance.WithStaticToken(cfg.Legifrance.Token))
	}
	return legifrance.New(ctx, legifrance.Config{
		BaseURL:      cfg.Legifrance.APIURL,
		TokenURL:     cfg.Legifrance.TokenURL,
		ClientID:     cfg.Legifrance.ClientID,
		ClientSecret: cfg.Legifrance.ClientSecret,
		Timeout:      cfg.Legifrance.Timeout,
	}, opts...)
}

func runServe(ctx context.Context, cmd *cli.Command) error {
	cfg, log, err := setup(cmd)
	if err != nil {
		return err
	}
	client, err := newClient(ctx, cfg, log)
	if err != nil {
		return err
	}

	catalog, err := prompt.Default()
	if err != nil {
		return err
	}

	mcpServer := server.NewMCPServer(server.Deps{
		Consulter: client,
		Prompts:   catalog,
		Limiter:   ratelimit.New(cfg.RateLimit.Calls, cfg.RateLimit.Period),
		Ready: func(ctx context.Context) error {
			_, err := client.Token(ctx)
			return err
		},
	})

	switch cfg.Server.Transport {
	case config.TransportStdio:
		defer client.Close()
		ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
		defer stop()
		log.Info("Legifrance MCP server ready", "transport", config.TransportStdio)
		return mcpServer.ServeStdio(ctx, os.Stdin, os.Stdout)
	default:
		return serveHTTP(ctx, cfg, log, mcpServer, client)
	}
}

func serveHTTP(
	ctx context.Context,
	cfg *config.Config,
	log *slog.Logger,
	mcpServer *server.MCPServer,
	client *legifrance.Client,
) error {
	ln, err := net.Listen("tcp", cfg.Server.Addr)
	if err != nil {
		_ = client.Close()
		return fmt.Errorf("listen on %s: %w", cfg.Server.Addr, err)
	}

	srv := server.NewHTTPServer(cfg.Server.Addr, mcpServer.Handler(server.HTTPOptions{
		APIKey: cfg.Server.APIKey,
		Logger: log,
	}))

	return runHTTP(ctx, log, ln, srv, client.Close)
}

// runHTTP serves srv on ln until a signal arrives, ctx is cancelled or Serve
// fails. A Serve failure shuts the manager down and is returned.
func runHTTP(
	ctx context.Context,
	log *slog.Logger,
	ln net.Listener,
	srv *http.Server,
	closers ...func() error,
) error {
	ctx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)

	m := graceful.NewManager(
		graceful.WithContext(ctx),
		graceful.WithLogger(graceful.NewSlogLogger(graceful.WithSlog(log))),
	)
	m.AddRunningJob(func(context.Context) error {
		log.Info("Legifrance MCP server listening", "addr", ln.Addr().String())
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("Server error", "error", err)
			cancel(err)
			return err
		}
		return nil
	})
	m.AddShutdownJob(func() error {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		log.Info("Shutting down server")
		return srv.Shutdown(ctx)
	})
	for _, c := range closers {
		m.AddShutdownJob(c)
	}

	<-m.Done()
	if err := context.Cause(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("serve http: %w", err)
	}
	return nil
}

func printValue(cmd *cli.Command, v any) error {
	w := cmd.Root().Writer
	if s, ok := v.(string); ok {
		_, err := fmt.Fprintln(w, s)
		return err
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}
