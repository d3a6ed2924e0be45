package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/user/sparring/internal/state"
)

func init() {
	rootCmd.AddCommand(quotaCmd, costsCmd)
	quotaCmd.AddCommand(quotaGrantCmd, quotaBalanceCmd)
}

var quotaCmd = &cobra.Command{
	Use:   "quota",
	Short: "Manage call-time quota",
}

var quotaGrantCmd = &cobra.Command{
	Use:   "grant <user> <minutes>",
	Short: "Grant call-time minutes to a user",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		minutes, err := strconv.Atoi(args[1])
		if err != nil || minutes <= 0 {
			return fmt.Errorf("minutes must be a positive integer, got %q", args[1])
		}

		cfg := loadConfig()
		quota := state.NewQuotaStore(cfg.DataDir)
		if err := quota.Grant(context.Background(), args[0], minutes*60); err != nil {
			return fmt.Errorf("grant quota: %w", err)
		}
		fmt.Fprintf(os.Stdout, "Granted %d minutes to %s.\n", minutes, args[0])
		return nil
	},
}

var quotaBalanceCmd = &cobra.Command{
	Use:   "balance <user>",
	Short: "Show a user's remaining call time",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadConfig()
		quota := state.NewQuotaStore(cfg.DataDir)
		seconds, err := quota.Balance(context.Background(), args[0])
		if err != nil {
			return fmt.Errorf("read balance: %w", err)
		}
		fmt.Fprintf(os.Stdout, "%s: %dm%ds remaining\n", args[0], seconds/60, seconds%60)
		return nil
	},
}

var costsCmd = &cobra.Command{
	Use:   "costs <user>",
	Short: "List recorded API costs for a user",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadConfig()
		costStore := state.NewCostStore(cfg.DataDir)

		records, err := costStore.List(context.Background(), args[0])
		if err != nil {
			return fmt.Errorf("list costs: %w", err)
		}
		if len(records) == 0 {
			fmt.Println("No cost records found.")
			return nil
		}

		total := 0
		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "WHEN\tPHASE\tSERVICE\tCENTS")
		for _, r := range records {
			total += r.CostCents
			fmt.Fprintf(w, "%s\t%s\t%s\t%d\n",
				r.CreatedAt.Format("2006-01-02 15:04:05"),
				r.Phase,
				r.Service,
				r.CostCents,
			)
		}
		fmt.Fprintf(w, "TOTAL\t\t\t%d\n", total)
		return w.Flush()
	},
}
