package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/ticket-tagger/backend/internal/ai"
	"github.com/ticket-tagger/backend/internal/config"
	"github.com/ticket-tagger/backend/internal/db"
	httpapi "github.com/ticket-tagger/backend/internal/http"
	"github.com/ticket-tagger/backend/internal/models"
	"github.com/ticket-tagger/backend/internal/service"
)

var shutdownGrace = 10 * time.Second

type app struct {
	cfg    config.Config
	logger zerolog.Logger
	store  *db.Store
	tagger *service.TaggingService
}

func (a *app) Close() {
	if a.store != nil {
		a.store.Close()
	}
}

func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "tagger [input_path] [output_path]",
		Short:         "Tag support tickets with categories from a hosted chat model",
		Args:          cobra.MaximumNArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup(cmd.Context(), cmd.ErrOrStderr(), true)
			if err != nil {
				return err
			}
			defer a.Close()

			input, output := a.cfg.InputPath, a.cfg.OutputPath
			if len(args) > 0 {
				input = args[0]
			}
			if len(args) > 1 {
				output = args[1]
			}

			summary, err := a.tagger.Run(cmd.Context(), input, output)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Tagged tickets saved to %s\n", summary.OutputPath)
			return nil
		},
	}
	cmd.AddCommand(newServeCommand())
	return cmd
}

func newServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the tagging API over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup(cmd.Context(), cmd.ErrOrStderr(), false)
			if err != nil {
				return err
			}
			defer a.Close()

			router := httpapi.Router(a.cfg, a.tagger, a.store, a.logger)
			srv := &http.Server{
				Addr:    ":" + a.cfg.Port,
				Handler: router,
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return serveUntilDone(ctx, srv, a.logger)
		},
	}
}

// serveUntilDone runs srv until ctx is cancelled, then drains in-flight
// requests. A batch run started over HTTP gets the shutdown grace period to
// finish writing its output.
func serveUntilDone(ctx context.Context, srv *http.Server, logger zerolog.Logger) error {
	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", srv.Addr).Msg("server started")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		logger.Error().Err(err).Msg("server error")
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("shutdown incomplete")
		return err
	}
	logger.Info().Msg("server stopped")
	return nil
}

func setup(ctx context.Context, stderr io.Writer, console bool) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	logger := newLogger(cfg.LogLevel, stderr, console)
	if err := cfg.Validate(); err != nil {
		logger.Error().Err(err).Msg("invalid configuration")
		return nil, err
	}

	classifier, err := newClassifier(cfg)
	if err != nil {
		logger.Error().Err(err).Msg("failed to build classifier")
		return nil, err
	}
	if cfg.Classifier == config.ClassifierMock {
		logger.Info().Msg("using mock classifier")
	}

	a := &app{cfg: cfg, logger: logger}
	a.tagger = &service.TaggingService{
		Classifier:        ai.WithPacing(classifier, cfg.ClassifierRPS),
		Categories:        models.Categories,
		Logger:            logger,
		OnClassifierError: service.ErrorPolicy(cfg.OnClassifierError),
	}

	if cfg.DatabaseURL != "" {
		store, err := db.New(ctx, cfg.DatabaseURL)
		if err != nil {
			logger.Error().Err(err).Msg("failed to connect db")
			return nil, err
		}
		if err := store.EnsureSchema(ctx); err != nil {
			store.Close()
			logger.Error().Err(err).Msg("failed to prepare run ledger")
			return nil, err
		}
		a.store = store
		a.tagger.Recorder = store
	}
	return a, nil
}

func newClassifier(cfg config.Config) (ai.Classifier, error) {
	if cfg.Classifier == config.ClassifierMock {
		return ai.MockClassifier{Categories: models.Categories}, nil
	}
	return ai.NewAzureClassifier(ai.AzureConfig{
		Endpoint:    cfg.AzureEndpoint,
		APIKey:      cfg.AzureAPIKey,
		Deployment:  cfg.AzureDeployment,
		APIVersion:  cfg.AzureAPIVersion,
		Temperature: ai.DefaultTemperature,
		TopP:        ai.DefaultTopP,
	})
}

func newLogger(level string, w io.Writer, console bool) zerolog.Logger {
	zerolog.TimeFieldFormat = time.RFC3339
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	if console {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.Kitchen}
	}
	return zerolog.New(w).Level(lvl).With().Timestamp().Str("service", "ticket-tagger").Logger()
}
