package commands

import (
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/54b3r/docrag-go/internal/config"
	"github.com/54b3r/docrag-go/internal/server"
)

// NewServeCmd constructs the `docrag serve` command, which starts the HTTP API.
func NewServeCmd() *cobra.Command {
	var host string
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the docrag HTTP API",
		Long: `Start the docrag HTTP API.

Every request acts as the guest account (DOCRAG_GUEST_EMAIL). Set
DOCRAG_API_KEY to require a Bearer token on /api routes; several keys may be
listed, comma-separated, while rotating.

Examples:
  docrag serve
  docrag serve --port 9090
  MODEL_PROVIDER=ollama EMBEDDING_PROVIDER=ollama docrag serve`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			ctx, log := cliContext(ctx)

			a, err := newApp(ctx, log)
			if err != nil {
				return fmt.Errorf("serve: %w", err)
			}
			defer a.Close()

			if !cmd.Flags().Changed("host") {
				host = config.String("DOCRAG_HOST", host)
			}
			if !cmd.Flags().Changed("port") {
				port = config.Int("DOCRAG_PORT", port)
			}

			srv, err := server.New(&server.Deps{
				Store:        a.db,
				Pipeline:     a.pipeline,
				Orchestrator: a.orch,
				Summarizer:   a.summarizer,
				Assistant:    a.assistant,
				Mirror:       a.vectorStore(),
			}, &server.Config{
				Host:           host,
				Port:           port,
				Logger:         log,
				Pingers:        buildPingers(a),
				RateLimit:      config.Float("DOCRAG_RATE_LIMIT", 0),
				RateBurst:      config.Int("DOCRAG_RATE_BURST", 0),
				APIKey:         config.String("DOCRAG_API_KEY", ""),
				CORSOrigins:    config.List("CORS_ORIGINS"),
				MaxUploadBytes: int64(config.Int("DOCRAG_MAX_UPLOAD_MB", 20)) << 20,
				GuestEmail:     guestEmail(),
				ChatTimeout:    config.Duration("DOCRAG_CHAT_TIMEOUT", 0),
			})
			if err != nil {
				return fmt.Errorf("serve: %w", err)
			}

			log.Info("serve starting",
				slog.String("provider", string(a.providerCfg.Backend)),
				slog.String("embedder", a.embedder.Provider()),
				slog.Bool("mirror", a.mirror != nil),
			)
			return srv.Start(ctx)
		},
	}

	cmd.Flags().StringVar(&host, "host", "127.0.0.1", "Host address to bind to (env DOCRAG_HOST)")
	cmd.Flags().IntVarP(&port, "port", "p", 8000, "TCP port to listen on (env DOCRAG_PORT)")
	return cmd
}

// buildPingers assembles the readiness probes for the configured services.
// The completion backend is probed only when it is configured, so a
// deliberately model-less deployment still reports ready.
func buildPingers(a *app) []server.Pinger {
	pingers := []server.Pinger{
		server.NewSQLitePinger(a.db),
		server.NewEmbedderPinger(a.embedder),
	}
	if a.chatModel != nil {
		pingers = append(pingers, server.NewLLMPinger(a.providerCfg, nil))
	}
	if a.mirror != nil {
		pingers = append(pingers, server.NewQdrantPinger(a.mirror.Client()))
	}
	return pingers
}
