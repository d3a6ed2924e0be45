package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/user/sparring/internal/costs"
	"github.com/user/sparring/internal/notify"
	"github.com/user/sparring/internal/prep"
	"github.com/user/sparring/internal/research"
	"github.com/user/sparring/internal/state"
	"github.com/user/sparring/internal/types"
	"github.com/user/sparring/pkg/llm"
	"github.com/user/sparring/pkg/llm/openai"
)

func init() {
	rootCmd.AddCommand(prepCmd)
}

var prepCmd = &cobra.Command{
	Use:   "prep <subject-id>",
	Short: "Run the prep pipeline for a subject and wait for it",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadConfig()
		setupLogging(cfg)

		subjects := state.NewSubjectStore(cfg.DataDir)
		researchStore := state.NewResearchStore(cfg.DataDir)
		progress := state.NewProgressStore(cfg.DataDir)
		costStore := state.NewCostStore(cfg.DataDir)

		provider := openai.New(&llm.Config{
			BaseURL:    cfg.LLM.BaseURL,
			APIKey:     cfg.LLM.APIKey,
			Model:      cfg.LLM.Model,
			MaxRetries: cfg.LLM.MaxRetries,
		})
		tracker := costs.NewTracker(provider, costStore, costs.DefaultPricing())

		notifier := notify.NewRegistry()
		if cfg.Telegram.Token != "" {
			tg, err := notify.NewTelegram(cfg.Telegram.Token)
			if err != nil {
				return fmt.Errorf("create telegram notifier: %w", err)
			}
			notifier.Register("telegram:", tg.Handler())
		}

		ctx := context.Background()
		subject, err := subjects.Get(ctx, types.SubjectID(args[0]))
		if err != nil {
			return err
		}

		if subject.ScenarioType == "debate" {
			budget, err := prep.NewBudgeter(cfg.LLM.Model, cfg.LLM.MaxPromptTokens)
			if err != nil {
				return fmt.Errorf("create token budgeter: %w", err)
			}
			agent := research.NewAgentClient(cfg.DeepResearch.BaseURL, cfg.DeepResearch.APIKey, cfg.DeepResearch.AgentID)
			extractor := research.NewExtractor(tracker, cfg.LLM.Model)
			pipeline := prep.NewPipeline(subjects, researchStore, progress, agent, extractor, tracker, budget, cfg.LLM.Model, notifier)
			if err := pipeline.Run(ctx, subject.ID); err != nil {
				return fmt.Errorf("prep pipeline: %w", err)
			}
		} else {
			pipeline := prep.NewGenericPipeline(subjects, progress, tracker, cfg.LLM.Model, notifier)
			if err := pipeline.Run(ctx, subject.ID); err != nil {
				return fmt.Errorf("prep pipeline: %w", err)
			}
		}

		fmt.Fprintf(os.Stdout, "Prep complete for %s.\n", subject.ID)
		return nil
	},
}
