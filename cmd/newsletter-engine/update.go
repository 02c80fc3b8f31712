package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pdiddy/newsletter-engine/internal/run"
	"github.com/pdiddy/newsletter-engine/pkg/types"
)

var updateCmd = &cobra.Command{
	Use:   "update [vertical]",
	Short: "Regenerate one section of a previous issue",
	Long: `Update re-researches and re-drafts a single section of a stored issue.
The remaining sections are carried over read-only, so the rest of the
issue is untouched; the result is saved as a new run.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		log := newLogger()
		cfg := buildConfig()

		baseRun, _ := cmd.Flags().GetString("run")
		instruction, _ := cmd.Flags().GetString("instruction")

		orch, store, err := buildOrchestrator(cfg, log)
		if err != nil {
			return err
		}
		defer store.Close()

		state, path, err := orch.Run(cmd.Context(), run.Params{
			Mode:              types.ModeUpdateOneUnit,
			BaseRunID:         baseRun,
			TargetVertical:    args[0],
			UpdateInstruction: instruction,
		})
		if err != nil {
			return fmt.Errorf("update failed: %w", err)
		}
		fmt.Printf("run %s complete: %s\n", state.ID, path)
		return nil
	},
}

func init() {
	updateCmd.Flags().String("run", "", "run ID to update (default: latest completed run)")
	updateCmd.Flags().String("instruction", "", "revision instruction for the regenerated section")

	rootCmd.AddCommand(updateCmd)
}
