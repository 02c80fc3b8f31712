package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"github.com/pdiddy/newsletter-engine/internal/run"
)

var renderCmd = &cobra.Command{
	Use:   "render [run-id]",
	Short: "Render a stored issue to HTML",
	Long: `Render converts a stored issue's markdown into a standalone HTML file
next to the run database, suitable for mailing or publishing.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := buildConfig()
		store, err := run.NewStore(cfg.Store)
		if err != nil {
			return err
		}
		defer store.Close()

		md, err := store.LoadIssue(cmd.Context(), args[0])
		if err != nil {
			return err
		}

		engine := goldmark.New(goldmark.WithExtensions(extension.GFM))
		var body bytes.Buffer
		if err := engine.Convert([]byte(md), &body); err != nil {
			return fmt.Errorf("converting markdown: %w", err)
		}

		var page bytes.Buffer
		fmt.Fprintf(&page, htmlShell, cfg.Output.Title, body.String())

		path := filepath.Join(cfg.Store.Dir, args[0]+".html")
		if err := os.WriteFile(path, page.Bytes(), 0o644); err != nil {
			return fmt.Errorf("writing html: %w", err)
		}
		fmt.Println(path)
		return nil
	},
}

const htmlShell = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>%s</title>
<style>
body { max-width: 46rem; margin: 2rem auto; padding: 0 1rem;
       font-family: Georgia, serif; line-height: 1.5; }
h1, h2 { font-family: Helvetica, Arial, sans-serif; }
li { margin-bottom: 0.4rem; }
</style>
</head>
<body>
%s
</body>
</html>
`

func init() {
	rootCmd.AddCommand(renderCmd)
}
