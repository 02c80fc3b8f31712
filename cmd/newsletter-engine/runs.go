package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/pdiddy/newsletter-engine/internal/run"
	"github.com/pdiddy/newsletter-engine/pkg/types"
)

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List stored newsletter runs",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := buildConfig()
		store, err := run.NewStore(cfg.Store)
		if err != nil {
			return err
		}
		defer store.Close()

		limit, _ := cmd.Flags().GetInt("limit")
		runs, err := store.ListRuns(cmd.Context(), limit)
		if err != nil {
			return err
		}
		if len(runs) == 0 {
			fmt.Println("no runs stored")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "RUN\tMODE\tPHASE\tCREATED")
		for _, r := range runs {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", r.ID, r.Mode, r.Phase, r.CreatedAt.Format("2006-01-02 15:04"))
		}
		return w.Flush()
	},
}

var showCmd = &cobra.Command{
	Use:   "show [run-id]",
	Short: "Show the per-unit outcome of a stored run",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := buildConfig()
		store, err := run.NewStore(cfg.Store)
		if err != nil {
			return err
		}
		defer store.Close()

		state, err := store.LoadRun(cmd.Context(), args[0])
		if err != nil {
			return err
		}

		fmt.Printf("run %s  mode=%s  phase=%s  rounds=%d\n\n", state.ID, state.Mode, state.Phase, state.Round)
		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "VERTICAL\tSTATUS\tEVIDENCE\tCALLS\tREVIEWS\tNOTE")
		for _, v := range state.Verticals {
			u := state.Unit(v)
			if u == nil {
				continue
			}
			note := u.FailureReason
			if u.ReadOnly {
				note = "carried over read-only"
			}
			fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%d\t%s\n",
				v, u.Status, len(u.Pack.Items), u.Pack.CallsUsed, len(u.History), note)
		}
		return w.Flush()
	},
}

var verticalsCmd = &cobra.Command{
	Use:   "verticals",
	Short: "List the built-in verticals and their focus entities",
	Run: func(cmd *cobra.Command, args []string) {
		for _, v := range types.DefaultVerticals {
			fmt.Printf("%s  (%s)\n", v.ID, v.DisplayName)
			for _, e := range v.FocusEntities {
				if t, ok := v.Tickers[e]; ok {
					fmt.Printf("  - %s [%s]\n", e, t)
				} else {
					fmt.Printf("  - %s\n", e)
				}
			}
		}
	},
}

func init() {
	runsCmd.Flags().Int("limit", 20, "maximum runs to list")

	rootCmd.AddCommand(runsCmd)
	rootCmd.AddCommand(showCmd)
	rootCmd.AddCommand(verticalsCmd)
}
