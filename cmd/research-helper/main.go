package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/mikeboe/evidence-helper/pkg/app"
	"github.com/mikeboe/evidence-helper/pkg/config"
	"github.com/mikeboe/evidence-helper/pkg/references"
	"github.com/mikeboe/evidence-helper/pkg/research"
)

var (
	siteSearch bool
	quiet      bool
)

func main() {
	// Load .env file
	if err := godotenv.Load(); err != nil {
		// It's okay if .env doesn't exist, as long as env vars are set
	}
	cfg := config.Load()
	app.NewLogger(cfg, os.Stderr)

	rootCmd := &cobra.Command{
		Use:   "research-helper",
		Short: "A terminal-based evidence research assistant",
		Long:  `research-helper answers questions about Islamic rulings by searching the web, reading trusted sources and citing the Quran verses, hadith and fatwas it finds.`,
	}

	askCmd := &cobra.Command{
		Use:   "ask [question]",
		Short: "Research a question and print a cited answer",
		Args:  cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			question := strings.TrimSpace(strings.Join(args, " "))
			if question == "" {
				// Interactive Mode
				reader := bufio.NewReader(cmd.InOrStdin())
				fmt.Fprint(cmd.ErrOrStderr(), "Enter your question: ")
				input, _ := reader.ReadString('\n')
				question = strings.TrimSpace(input)
			}
			if question == "" {
				return research.ErrEmptyQuery
			}

			components, err := app.NewComponents(cfg)
			if err != nil {
				return err
			}
			engine, err := components.Engine(cmd.Context())
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()
			return ask(ctx, engine, question, cmd.OutOrStdout(), cmd.ErrOrStderr())
		},
	}
	askCmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "Only print the final answer")

	extractCmd := &cobra.Command{
		Use:   "extract <url>",
		Short: "Fetch a page and print the extracted content as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			components, err := app.NewComponents(cfg)
			if err != nil {
				return err
			}
			p, err := components.Crawler.Fetch(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if siteSearch {
				return printJSON(cmd.OutOrStdout(), components.Extractor.SearchResults(p.HTML, p.URL))
			}
			return printJSON(cmd.OutOrStdout(), components.Extractor.Extract(p.HTML, p.URL))
		},
	}
	extractCmd.Flags().BoolVar(&siteSearch, "site-search", false, "Treat the page as a site search page and print its result links")

	refsCmd := &cobra.Command{
		Use:   "refs",
		Short: "Resolve citations and scripture mentions in markdown read from stdin",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := io.ReadAll(cmd.InOrStdin())
			if err != nil {
				return fmt.Errorf("failed to read stdin: %w", err)
			}
			return printJSON(cmd.OutOrStdout(), references.ExtractReferences(string(data)))
		},
	}

	sitesCmd := &cobra.Command{
		Use:   "sites",
		Short: "List the trusted sites with extraction rules",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			components, err := app.NewComponents(cfg)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, s := range components.Sites.All() {
				fmt.Fprintf(out, "%-24s %-36s %v\n", s.Domain, s.Name, s.EvidenceTypes)
			}
			return nil
		},
	}

	rootCmd.AddCommand(askCmd, extractCmd, refsCmd, sitesCmd)
	rootCmd.SilenceUsage = true

	if err := rootCmd.Execute(); err != nil {
		slog.Error("Command execution failed", "error", err)
		os.Exit(1)
	}
}

// ask runs one session, printing progress to errw and the answer to w.
func ask(ctx context.Context, engine *research.Engine, question string, w, errw io.Writer) error {
	var t research.Transcript
	for ev := range engine.Run(ctx, research.Request{Query: question}) {
		t.Apply(ev)
		if quiet {
			continue
		}
		switch ev.Type {
		case research.EventStepStart:
			fmt.Fprintf(errw, "\n== %s ==\n", ev.StepTitle)
		case research.EventStepContent:
			fmt.Fprint(errw, ev.Content)
		case research.EventSource:
			fmt.Fprintf(errw, "  [%d] %s (%s)\n", ev.Source.ID, ev.Source.Title, ev.Source.URL)
		case research.EventResponseStart:
			fmt.Fprintln(errw)
		case research.EventResponseContent:
			fmt.Fprint(w, ev.Content)
		}
	}

	if t.Error != "" {
		return fmt.Errorf("research failed: %s", t.Error)
	}
	if !t.Done {
		return ctx.Err()
	}
	if quiet {
		fmt.Fprint(w, t.Response)
	}
	fmt.Fprintln(w)
	return nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
