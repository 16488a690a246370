// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pdiddy/paper-brain/internal/genai"
	"github.com/pdiddy/paper-brain/internal/ingest"
	"github.com/pdiddy/paper-brain/internal/search"
)

var papersCmd = &cobra.Command{
	Use:   "papers",
	Short: "Discover and manage the working set of papers",
	Long: `Papers manages the on-disk working set. "papers search" queries arXiv
for candidates ranked against your question; "papers list" shows what
is already available to load.`,
}

var papersSearchCmd = &cobra.Command{
	Use:   "search [question]",
	Short: "Search arXiv for papers matching a research question",
	Long: `Search rewrites the question into a keyword query, searches arXiv, and
ranks the results by embedding similarity between your question and
each abstract. Use --save to record result metadata under the papers
directory for later loading.`,
	Args: cobra.ExactArgs(1),
	RunE: runPapersSearch,
}

var papersListCmd = &cobra.Command{
	Use:   "list",
	Short: "List papers available on disk",
	RunE:  runPapersList,
}

func init() {
	papersSearchCmd.Flags().Int("max-results", 10, "maximum number of results to return")
	papersSearchCmd.Flags().Bool("save", false, "save result metadata under the papers directory")
	papersSearchCmd.Flags().Bool("json", false, "output results as JSON")
	papersSearchCmd.Flags().String("papers-dir", "", "base directory for papers")

	papersListCmd.Flags().String("papers-dir", "", "base directory for papers")

	papersCmd.AddCommand(papersSearchCmd)
	papersCmd.AddCommand(papersListCmd)
	rootCmd.AddCommand(papersCmd)
}

func runPapersSearch(cmd *cobra.Command, args []string) error {
	logger, err := newLogger(cmd)
	if err != nil {
		return err
	}
	defer logger.Sync()

	maxResults, _ := cmd.Flags().GetInt("max-results")
	cfg := searchConfig(maxResults)

	client := genai.NewClient(genaiConfig(), logger)
	backend := &search.ArxivBackend{Client: &http.Client{Timeout: cfg.Timeout}}
	d := search.NewDiscovery(backend, client, client, cfg, logger)

	papers, err := d.Discover(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	if len(papers) == 0 {
		fmt.Println("No papers found.")
		return nil
	}

	if save, _ := cmd.Flags().GetBool("save"); save {
		papersDir := ingestConfig(cmd).PapersDir
		for _, p := range papers {
			if err := ingest.SavePaper(papersDir, p); err != nil {
				return err
			}
		}
		fmt.Fprintf(os.Stderr, "Saved %d paper(s) to %s\n", len(papers), papersDir)
	}

	if jsonOutput, _ := cmd.Flags().GetBool("json"); jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(papers)
	}

	fmt.Printf("%-4s  %-14s  %-60s  %s\n", "Rank", "ID", "Title", "Score")
	fmt.Println(strings.Repeat("-", 90))
	for i, p := range papers {
		title := p.Title
		if len(title) > 60 {
			title = title[:57] + "..."
		}
		fmt.Printf("%-4d  %-14s  %-60s  %.3f\n", i+1, p.ID, title, p.RelevanceScore)
	}
	fmt.Printf("\n%d results\n", len(papers))
	return nil
}

func runPapersList(cmd *cobra.Command, args []string) error {
	papersDir := ingestConfig(cmd).PapersDir
	ids, err := ingest.ListPapers(papersDir)
	if err != nil {
		return err
	}
	if len(ids) == 0 {
		fmt.Printf("No papers under %s.\n", papersDir)
		return nil
	}
	for _, id := range ids {
		fmt.Println(id)
	}
	return nil
}
