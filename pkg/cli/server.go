package cli

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mchmarny/defaultrisk/pkg/config"
	"github.com/mchmarny/defaultrisk/pkg/feature"
	"github.com/mchmarny/defaultrisk/pkg/logging"
	"github.com/mchmarny/defaultrisk/pkg/model"
	"github.com/mchmarny/defaultrisk/pkg/scoring"
	"github.com/prometheus/client_golang/prometheus"
	urfave "github.com/urfave/cli/v3"
)

const (
	serverShutdownWaitSeconds = 5
	serverTimeoutSeconds      = 30
	serverMaxHeaderBytes      = 20
	serverMaxBodyBytes        = 1 << 20
	serverPortDefault         = 8080
)

var (
	//go:embed templates/*
	embedFS embed.FS

	portFlag = &urfave.IntFlag{
		Name:    "port",
		Usage:   "Port on which the server will listen",
		Value:   serverPortDefault,
		Sources: urfave.EnvVars("PORT"),
	}

	addressFlag = &urfave.StringFlag{
		Name:  "address",
		Usage: "Address on which the server will listen",
	}

	contractFlag = &urfave.StringFlag{
		Name:  "contract",
		Usage: "Record contract of the JSON predict endpoint [encoded, raw]",
	}

	logFormatFlag = &urfave.StringFlag{
		Name:  "log-format",
		Usage: "Server log format [text, json]",
	}

	serverCmd = &urfave.Command{
		Name:    "serve",
		Aliases: []string{"server", "s"},
		Usage:   "Start the scoring HTTP server",
		Action:  cmdStartServer,
		Flags: []urfave.Flag{
			portFlag,
			addressFlag,
			contractFlag,
			logFormatFlag,
		},
	}
)

func cmdStartServer(ctx context.Context, cmd *urfave.Command) error {
	cfg := getConfig(cmd)
	if err := applyServerFlags(cmd, cfg.Config); err != nil {
		return err
	}

	slog.SetDefault(logging.NewServerLogger(os.Stdout, cfg.LogLevel, cfg.LogFormat))

	svc, err := newService(ctx, cfg.Config)
	if err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	s := &http.Server{
		Addr:           cfg.Listen(),
		Handler:        makeRouter(svc, cfg.Contract, reg),
		ReadTimeout:    serverTimeoutSeconds * time.Second,
		WriteTimeout:   serverTimeoutSeconds * time.Second,
		MaxHeaderBytes: 1 << serverMaxHeaderBytes,
	}

	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)

	errCh := make(chan error, 1)
	go func() {
		if err := s.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	slog.Info("server started",
		"address", fmt.Sprintf("http://%s", cfg.Listen()),
		"model", cfg.ModelPath,
		"contract", cfg.Contract,
		"validation", svc.Mode(),
		"order", svc.Order().Source(),
	)

	select {
	case <-done:
	case err := <-errCh:
		return fmt.Errorf("error starting server: %w", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), serverShutdownWaitSeconds*time.Second)
	defer cancel()

	if err := s.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("error shutting down server", "error", err)
	}
	slog.Info("server stopped")
	return nil
}

func applyServerFlags(cmd *urfave.Command, cfg *config.Config) error {
	if cmd.IsSet(portFlag.Name) {
		cfg.Port = int(cmd.Int(portFlag.Name))
	}
	if cmd.IsSet(addressFlag.Name) {
		cfg.Address = cmd.String(addressFlag.Name)
	}
	if cmd.IsSet(contractFlag.Name) {
		cfg.Contract = cmd.String(contractFlag.Name)
	}
	if cmd.IsSet(logFormatFlag.Name) {
		cfg.LogFormat = cmd.String(logFormatFlag.Name)
	}
	return cfg.Validate()
}

// newService loads the configured model and wraps it in a scoring service.
// A model that cannot be loaded is fatal.
func newService(ctx context.Context, cfg *config.Config) (*scoring.Service, error) {
	mode, err := feature.ParseMode(cfg.Validation)
	if err != nil {
		return nil, err
	}

	classifier, err := model.Load(ctx, cfg.ModelPath, model.Options{Token: cfg.ModelToken})
	if err != nil {
		return nil, err
	}

	return scoring.NewService(classifier, mode)
}

func makeRouter(svc *scoring.Service, contract string, reg *prometheus.Registry) http.Handler {
	tmpl := template.Must(template.New("").Funcs(templateFuncs).ParseFS(embedFS, "templates/*.html"))
	m := newMetrics(reg)

	mux := http.NewServeMux()

	// Views
	mux.HandleFunc("GET /{$}", homeViewHandler(tmpl))
	mux.HandleFunc("POST /predict-form", predictFormHandler(tmpl, svc, m))

	// API
	mux.HandleFunc("GET /health", healthAPIHandler)
	mux.HandleFunc("POST /predict", predictAPIHandler(svc, contract, m))
	mux.HandleFunc("GET /schema", schemaAPIHandler(svc, contract))
	mux.Handle("GET /metrics", m.handler())

	return requestLogger(m, mux)
}
