package main

import (
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/pdiddy/newsletter-engine/internal/run"
	"github.com/pdiddy/newsletter-engine/pkg/types"
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate a full newsletter issue",
	Long: `Generate researches every requested vertical in parallel, drafts one
section per vertical, runs the review loop, harmonizes tone across the
accepted sections, and assembles the final markdown issue.

A vertical whose research or drafting fails renders as an explicit
placeholder; the rest of the issue still completes.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		log := newLogger()
		cfg := buildConfig()

		if v, _ := cmd.Flags().GetInt("budget"); v > 0 {
			cfg.Retrieval.CallBudget = v
		}
		if v, _ := cmd.Flags().GetInt("rounds"); v > 0 {
			cfg.Review.MaxRounds = v
		}
		if v, _ := cmd.Flags().GetString("output"); v != "" {
			cfg.Store.Dir = v
		}

		if request, _ := cmd.Flags().GetString("request"); request != "" {
			rf, err := run.ReadRequestFile(request)
			if err != nil {
				return err
			}
			params, err := rf.ToParams()
			if err != nil {
				return err
			}
			return executeRun(cmd, cfg, log, params)
		}

		verticals, _ := cmd.Flags().GetStringSlice("verticals")
		if len(verticals) == 0 {
			verticals = types.DefaultVerticalIDs()
		}

		from, _ := cmd.Flags().GetString("from")
		to, _ := cmd.Flags().GetString("to")
		window, err := parseWindow(from, to)
		if err != nil {
			return err
		}

		voice, _ := cmd.Flags().GetString("voice")
		region, _ := cmd.Flags().GetString("region")
		style, _ := cmd.Flags().GetString("style")
		focus, _ := cmd.Flags().GetStringSlice("focus")

		params := run.Params{
			Mode:      types.ModeGenerate,
			Verticals: verticals,
			Window:    window,
			Voice:     voice,
			Region:    region,
			Style:     style,
		}
		if len(focus) > 0 {
			params.FocusEntities = parseFocus(focus)
		}
		return executeRun(cmd, cfg, log, params)
	},
}

// executeRun drives one orchestrator run and reports the issue path.
func executeRun(cmd *cobra.Command, cfg types.PipelineConfig, log *logrus.Logger, params run.Params) error {
	orch, store, err := buildOrchestrator(cfg, log)
	if err != nil {
		return err
	}
	defer store.Close()

	state, path, err := orch.Run(cmd.Context(), params)
	if err != nil {
		return fmt.Errorf("run failed: %w", err)
	}
	fmt.Printf("run %s complete: %s\n", state.ID, path)
	return nil
}

// parseFocus converts "vertical=Entity A;Entity B" flag values into the
// per-vertical focus-entity override map.
func parseFocus(values []string) map[string][]string {
	out := make(map[string][]string)
	for _, v := range values {
		vertical, list, found := strings.Cut(v, "=")
		if !found {
			continue
		}
		for _, e := range strings.Split(list, ";") {
			if e = strings.TrimSpace(e); e != "" {
				out[vertical] = append(out[vertical], e)
			}
		}
	}
	return out
}

func init() {
	generateCmd.Flags().StringSlice("verticals", nil, "verticals to cover (default: all built-in verticals)")
	generateCmd.Flags().String("from", "", "coverage window start (YYYY-MM-DD, default: 7 days ago)")
	generateCmd.Flags().String("to", "", "coverage window end (YYYY-MM-DD, default: today)")
	generateCmd.Flags().String("voice", "analytical and measured", "voice profile for all sections")
	generateCmd.Flags().String("region", "", "geographic focus (e.g. Europe)")
	generateCmd.Flags().String("style", "", "freeform style directives")
	generateCmd.Flags().StringSlice("focus", nil, `focus-entity override per vertical, e.g. "data_centers=Equinix;Switch"`)
	generateCmd.Flags().Int("budget", 0, "retrieval call budget per vertical (overrides config)")
	generateCmd.Flags().Int("rounds", 0, "maximum review rounds (overrides config)")
	generateCmd.Flags().String("output", "", "directory for the run store and rendered issues (overrides config)")
	generateCmd.Flags().String("request", "", "YAML run-request file (overrides the other flags)")

	rootCmd.AddCommand(generateCmd)
}
