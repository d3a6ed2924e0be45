package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/user/sparring/internal/analysis"
	"github.com/user/sparring/internal/costs"
	"github.com/user/sparring/internal/notify"
	"github.com/user/sparring/internal/prep"
	"github.com/user/sparring/internal/research"
	"github.com/user/sparring/internal/scheduler"
	"github.com/user/sparring/internal/state"
	"github.com/user/sparring/internal/webhook"
	"github.com/user/sparring/pkg/llm"
	"github.com/user/sparring/pkg/llm/openai"
)

func init() {
	rootCmd.AddCommand(serveCmd)
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the sparring daemon",
	RunE:  runServe,
}

func writePIDFile(dataDir string) (string, error) {
	pidPath := filepath.Join(dataDir, "sparring.pid")
	pid := os.Getpid()
	if err := os.WriteFile(pidPath, []byte(strconv.Itoa(pid)+"\n"), 0644); err != nil {
		return "", fmt.Errorf("write PID file: %w", err)
	}
	return pidPath, nil
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := loadConfig()
	setupLogging(cfg)

	if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}

	// Write PID file
	pidPath, err := writePIDFile(cfg.DataDir)
	if err != nil {
		return err
	}
	defer os.Remove(pidPath)

	// Stores
	subjects := state.NewSubjectStore(cfg.DataDir)
	sessions := state.NewSessionStore(cfg.DataDir)
	researchStore := state.NewResearchStore(cfg.DataDir)
	progress := state.NewProgressStore(cfg.DataDir)
	costStore := state.NewCostStore(cfg.DataDir)
	quota := state.NewQuotaStore(cfg.DataDir)

	// LLM provider, wrapped in the cost tracker all callers go through.
	provider := openai.New(&llm.Config{
		BaseURL:    cfg.LLM.BaseURL,
		APIKey:     cfg.LLM.APIKey,
		Model:      cfg.LLM.Model,
		MaxRetries: cfg.LLM.MaxRetries,
	})
	tracker := costs.NewTracker(provider, costStore, costs.DefaultPricing())

	// Research adapters
	agent := research.NewAgentClient(cfg.DeepResearch.BaseURL, cfg.DeepResearch.APIKey, cfg.DeepResearch.AgentID)
	extractor := research.NewExtractor(tracker, cfg.LLM.Model)
	search := research.NewSearchClient(cfg.Search.BaseURL, cfg.Search.APIKey)

	// Notification registry
	notifier := notify.NewRegistry()
	if cfg.Telegram.Token != "" {
		tg, err := notify.NewTelegram(cfg.Telegram.Token)
		if err != nil {
			return fmt.Errorf("create telegram notifier: %w", err)
		}
		notifier.Register("telegram:", tg.Handler())
		slog.Info("telegram notifier registered")
	} else {
		slog.Warn("telegram notifier disabled (no token)")
	}

	// Prep pipelines
	budget, err := prep.NewBudgeter(cfg.LLM.Model, cfg.LLM.MaxPromptTokens)
	if err != nil {
		return fmt.Errorf("create token budgeter: %w", err)
	}
	primary := prep.NewPipeline(subjects, researchStore, progress, agent, extractor, tracker, budget, cfg.LLM.Model, notifier)
	generic := prep.NewGenericPipeline(subjects, progress, tracker, cfg.LLM.Model, notifier)
	runner := prep.NewRunner(primary, generic, int64(cfg.MaxConcurrent))

	// Post-session analysis + sweep
	analyzer := analysis.New(sessions, subjects, tracker, cfg.LLM.Model, notifier)
	sweeper := scheduler.New(sessions, analyzer, cfg.Analysis.SweepSchedule)
	if cfg.Search.APIKey != "" {
		sweeper.SetRefresh(subjects, researchStore, research.NewRefresher(search, researchStore))
	}
	if err := sweeper.Start(); err != nil {
		return fmt.Errorf("start sweep scheduler: %w", err)
	}
	defer sweeper.Stop()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// HTTP server: voice-platform webhook + subject/session API
	srv := webhook.NewServer(subjects, sessions, progress, costStore, quota, runner, analyzer, cfg.Voice.CentsPerMinute)
	httpServer := &http.Server{
		Addr:    cfg.HTTP.Listen,
		Handler: srv,
	}
	go func() {
		slog.Info("http server started", "listen", cfg.HTTP.Listen)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("http server error", "error", err)
		}
	}()
	go func() {
		<-ctx.Done()
		httpServer.Close()
	}()

	slog.Info("sparring started",
		"data_dir", cfg.DataDir,
		"log_level", cfg.LogLevel,
		"max_concurrent", cfg.MaxConcurrent,
		"llm_provider", cfg.LLM.Provider,
		"llm_model", cfg.LLM.Model,
		"sweep_schedule", cfg.Analysis.SweepSchedule,
		"pid_file", pidPath,
	)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)

	for {
		sig := <-sigChan
		if sig == syscall.SIGHUP {
			slog.Info("received SIGHUP, restarting")
			execPath, err := os.Executable()
			if err != nil {
				slog.Error("failed to get executable path", "error", err)
				continue
			}
			// Clean up PID file before re-exec
			os.Remove(pidPath)
			if err := syscall.Exec(execPath, os.Args, os.Environ()); err != nil {
				slog.Error("failed to re-exec", "error", err)
				// Re-write PID file since we failed to re-exec
				if _, writeErr := writePIDFile(cfg.DataDir); writeErr != nil {
					slog.Error("failed to re-write PID file", "error", writeErr)
				}
				continue
			}
		}
		// SIGINT or SIGTERM
		slog.Info("shutting down", "signal", sig)
		return nil
	}
}
