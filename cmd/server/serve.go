package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	"github.com/spf13/cobra"

	"mindmate/internal/config"
	"mindmate/internal/core"
	"mindmate/internal/crisis"
	httpserver "mindmate/internal/http"
	"mindmate/internal/llm"
	"mindmate/internal/speech"
	"mindmate/internal/store"
)

func newServeCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return serve(ctx, a.cfg)
		},
	}
	cmd.Flags().String("port", "", "listen port (or set PORT)")
	_ = a.v.BindPFlag("port", cmd.Flags().Lookup("port"))
	return cmd
}

func serve(ctx context.Context, cfg *config.Config) error {
	// A broken lexicon or rule file must stop start-up rather than run an
	// incomplete screen.
	assessor, err := crisis.Load(cfg.Crisis.LexiconFile)
	if err != nil {
		return fmt.Errorf("load crisis lexicon: %w", err)
	}
	slog.Info("serve: crisis screen ready", "phrases", assessor.Lexicon().Len(), "patterns", len(assessor.Rules()))

	chatLLM := llm.NewOpenAIClient(llm.Config{
		BaseURL:       cfg.LLM.APIURL,
		APIKey:        cfg.LLM.APIKey,
		Model:         cfg.LLM.Model,
		Temperature:   cfg.LLM.Temperature,
		MaxTokens:     cfg.LLM.MaxTokens,
		Timeout:       cfg.LLM.Timeout,
		StreamTimeout: cfg.LLM.StreamTimeout,
	})
	if !chatLLM.Configured() {
		slog.Warn("serve: LLM_API_KEY not set, replies will be placeholders")
	}
	voice := speech.NewElevenLabsClient(elevenLabsConfig(cfg))
	deps := core.Deps{
		LLM:      chatLLM,
		Assessor: assessor,
		STT:      speech.NewWhisperClient(whisperConfig(cfg)),
		TTS:      voice,
	}

	st, err := openStore(ctx, cfg, &deps)
	if err != nil {
		return err
	}
	deps.Store = st
	defer func() {
		if err := st.Close(); err != nil {
			slog.Error("serve: closing store", "error", err)
		}
	}()

	srv := &http.Server{
		Addr: ":" + cfg.Port,
		Handler: httpserver.NewServer(core.NewChatService(deps), httpserver.Options{
			AllowOrigins:  cfg.CORSOrigins,
			Agent:         voice,
			Version:       cfg.Version,
			MaxAudioBytes: cfg.MaxAudioBytes,
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("serve: listening", "addr", srv.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	slog.Info("serve: shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// whisperConfig targets the speech API root, which is independent of the
// chat endpoint.
func whisperConfig(cfg *config.Config) speech.WhisperConfig {
	return speech.WhisperConfig{
		BaseURL:  cfg.Whisper.APIURL,
		APIKey:   cfg.Whisper.APIKey,
		Model:    cfg.Whisper.Model,
		Language: cfg.Whisper.Language,
		Timeout:  cfg.LLM.Timeout,
	}
}

func elevenLabsConfig(cfg *config.Config) speech.ElevenLabsConfig {
	return speech.ElevenLabsConfig{
		APIKey:  cfg.ElevenLabs.APIKey,
		VoiceID: cfg.ElevenLabs.VoiceID,
		AgentID: cfg.ElevenLabs.AgentID,
		ModelID: cfg.ElevenLabs.Model,
		Timeout: cfg.LLM.Timeout,
	}
}

// openStore selects Postgres when DATABASE_URL is set and the in-memory
// store otherwise.  With Postgres, crisis alerts are published over
// LISTEN/NOTIFY and echoed to the log.
func openStore(ctx context.Context, cfg *config.Config, deps *core.Deps) (store.Store, error) {
	if cfg.DatabaseURL == "" {
		mem := store.NewMemory(cfg.Store.HistoryLimit)
		go mem.RunJanitor(ctx, cfg.Store.SweepEvery, cfg.Store.IdleTTL)
		slog.Info("serve: using in-memory conversation store", "history_limit", cfg.Store.HistoryLimit)
		return mem, nil
	}

	db, err := sql.Open("postgres", cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if err := store.Migrate(ctx, db); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	notifier := store.NewNotifier(db, cfg.DatabaseURL, cfg.Crisis.AlertChannel)
	deps.Alerts = notifier
	alerts, err := notifier.Listen(ctx)
	if err != nil {
		slog.Warn("serve: crisis alert listener unavailable", "error", err)
	} else {
		go func() {
			for a := range alerts {
				slog.Warn("serve: crisis alert", "conversation", a.ConversationID, "level", a.Level, "triggers", a.Triggers)
			}
		}()
	}
	slog.Info("serve: using postgres conversation store", "history_limit", cfg.Store.HistoryLimit)
	return store.NewPostgres(db, cfg.Store.HistoryLimit), nil
}
