package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/user/sparring/internal/state"
	"github.com/user/sparring/internal/types"
)

func init() {
	rootCmd.AddCommand(sessionCmd)
	sessionCmd.AddCommand(sessionListCmd, sessionShowCmd)
}

var sessionCmd = &cobra.Command{
	Use:   "session",
	Short: "Inspect practice sessions",
}

var sessionListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all sessions",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadConfig()
		sessions := state.NewSessionStore(cfg.DataDir)

		ctx := context.Background()
		list, err := sessions.List(ctx)
		if err != nil {
			return fmt.Errorf("list sessions: %w", err)
		}
		if len(list) == 0 {
			fmt.Println("No sessions found.")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tSUBJECT\tDURATION\tFINALIZED\tANALYZED")
		for _, s := range list {
			fmt.Fprintf(w, "%s\t%s\t%ds\t%v\t%v\n",
				s.ID,
				s.SubjectID,
				s.DurationSec,
				s.Finalized,
				len(s.FullAnalysis) > 0,
			)
		}
		return w.Flush()
	},
}

var sessionShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show a session with its transcript",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadConfig()
		sessions := state.NewSessionStore(cfg.DataDir)

		ctx := context.Background()
		session, err := sessions.Get(ctx, types.SessionID(args[0]))
		if err != nil {
			return err
		}
		data, err := json.MarshalIndent(session, "", "  ")
		if err != nil {
			return fmt.Errorf("marshal session: %w", err)
		}
		fmt.Fprintln(os.Stdout, string(data))

		exchanges, err := sessions.Exchanges(ctx, session.ID)
		if err != nil {
			return fmt.Errorf("read transcript: %w", err)
		}
		for _, e := range exchanges {
			fmt.Fprintf(os.Stdout, "[%s] %s\n", e.Speaker, e.Text)
		}
		return nil
	},
}
