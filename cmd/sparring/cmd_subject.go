package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"github.com/user/sparring/internal/state"
	"github.com/user/sparring/internal/types"
)

func init() {
	rootCmd.AddCommand(subjectCmd)
	subjectCmd.AddCommand(subjectCreateCmd, subjectListCmd, subjectShowCmd, subjectProgressCmd)

	subjectCreateCmd.Flags().String("topic", "", "debate topic or product (required)")
	subjectCreateCmd.Flags().String("scenario", "", "scenario type: debate, sales, pitch, healthcare (required)")
	subjectCreateCmd.Flags().String("position", "", "the position you are arguing")
	subjectCreateCmd.Flags().String("user", "cli", "user id the subject belongs to")
	subjectCreateCmd.Flags().String("intensity", "", "research intensity: basic, aggressive, deep")
	subjectCreateCmd.Flags().String("audience", "", "audience description")
	subjectCreateCmd.Flags().String("disposition", "", "audience disposition: hostile, skeptical, friendly, neutral")
	subjectCreateCmd.Flags().String("opponent", "", "opponent name")
	subjectCreateCmd.Flags().String("notify-key", "", "notification target, e.g. telegram:12345")
	_ = subjectCreateCmd.MarkFlagRequired("topic")
	_ = subjectCreateCmd.MarkFlagRequired("scenario")
}

var subjectCmd = &cobra.Command{
	Use:   "subject",
	Short: "Manage sparring subjects",
}

var subjectCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a new subject",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadConfig()
		subjects := state.NewSubjectStore(cfg.DataDir)

		topic, _ := cmd.Flags().GetString("topic")
		scenario, _ := cmd.Flags().GetString("scenario")
		position, _ := cmd.Flags().GetString("position")
		user, _ := cmd.Flags().GetString("user")
		intensity, _ := cmd.Flags().GetString("intensity")
		audience, _ := cmd.Flags().GetString("audience")
		disposition, _ := cmd.Flags().GetString("disposition")
		opponent, _ := cmd.Flags().GetString("opponent")
		notifyKey, _ := cmd.Flags().GetString("notify-key")

		now := time.Now()
		subject := &types.Subject{
			ID:                  types.NewSubjectID(),
			UserID:              user,
			Topic:               topic,
			Position:            position,
			ScenarioType:        scenario,
			ResearchIntensity:   intensity,
			AudienceDescription: audience,
			AudienceDisposition: disposition,
			OpponentName:        opponent,
			NotifyKey:           notifyKey,
			CreatedAt:           now,
			UpdatedAt:           now,
		}
		if err := subjects.Create(context.Background(), subject); err != nil {
			return fmt.Errorf("create subject: %w", err)
		}
		fmt.Fprintf(os.Stdout, "Subject %s created.\n", subject.ID)
		return nil
	},
}

var subjectListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all subjects",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadConfig()
		subjects := state.NewSubjectStore(cfg.DataDir)

		list, err := subjects.List(context.Background())
		if err != nil {
			return fmt.Errorf("list subjects: %w", err)
		}
		if len(list) == 0 {
			fmt.Println("No subjects found.")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tSCENARIO\tTOPIC\tPREPPED\tCREATED")
		for _, s := range list {
			prepped := s.Generic != nil || len(s.Openings) > 0
			fmt.Fprintf(w, "%s\t%s\t%s\t%v\t%s\n",
				s.ID,
				s.ScenarioType,
				s.Topic,
				prepped,
				s.CreatedAt.Format("2006-01-02 15:04:05"),
			)
		}
		return w.Flush()
	},
}

var subjectShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show a subject with its prep artifacts",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadConfig()
		subjects := state.NewSubjectStore(cfg.DataDir)

		subject, err := subjects.Get(context.Background(), types.SubjectID(args[0]))
		if err != nil {
			return err
		}
		data, err := json.MarshalIndent(subject, "", "  ")
		if err != nil {
			return fmt.Errorf("marshal subject: %w", err)
		}
		fmt.Fprintln(os.Stdout, string(data))
		return nil
	},
}

var subjectProgressCmd = &cobra.Command{
	Use:   "progress <id>",
	Short: "Show pipeline progress for a subject",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadConfig()
		subjects := state.NewSubjectStore(cfg.DataDir)
		progress := state.NewProgressStore(cfg.DataDir)

		ctx := context.Background()
		subject, err := subjects.Get(ctx, types.SubjectID(args[0]))
		if err != nil {
			return err
		}
		kind := types.PipelineGeneric
		if subject.ScenarioType == "debate" {
			kind = types.PipelinePrimary
		}
		record, err := progress.Get(ctx, subject.ID, kind)
		if err != nil {
			return fmt.Errorf("read progress: %w", err)
		}
		fmt.Fprintf(os.Stdout, "status: %s\n", record.Status)
		if record.Error != "" {
			fmt.Fprintf(os.Stdout, "error: %s\n", record.Error)
		}
		for _, stage := range record.Completed {
			fmt.Fprintf(os.Stdout, "done: %s\n", stage)
		}
		return nil
	},
}
