// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/pdiddy/paper-brain/internal/genai"
	"github.com/pdiddy/paper-brain/internal/index"
	"github.com/pdiddy/paper-brain/internal/ingest"
	"github.com/pdiddy/paper-brain/internal/pipeline"
	"github.com/pdiddy/paper-brain/pkg/types"
)

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Ask one question over the loaded papers",
	Long: `Ask indexes the selected papers, runs the question through the full
retrieval pipeline, and prints a cited answer. Use --task to skip
intent classification, and --json to emit the answer with its stage
trace for UI consumption.`,
	Args: cobra.ExactArgs(1),
	RunE: runAsk,
}

func init() {
	askCmd.Flags().String("papers", "", "comma-separated paper ids to load (default: all papers on disk)")
	askCmd.Flags().String("papers-dir", "", "base directory for papers (contains metadata/ and text/)")
	askCmd.Flags().String("task", "", "task override: qa, summarize, compare, or explain")
	askCmd.Flags().Bool("json", false, "output the answer and stage trace as JSON")

	rootCmd.AddCommand(askCmd)
}

func runAsk(cmd *cobra.Command, args []string) error {
	logger, err := newLogger(cmd)
	if err != nil {
		return err
	}
	defer logger.Sync()

	ctx := cmd.Context()
	client := genai.NewClient(genaiConfig(), logger)

	ix, _, err := buildIndex(ctx, cmd, client, logger)
	if err != nil {
		return err
	}
	defer ix.Close()

	req := pipeline.Request{Query: args[0]}
	if taskFlag, _ := cmd.Flags().GetString("task"); taskFlag != "" {
		task, err := types.ParseTaskType(taskFlag)
		if err != nil {
			return err
		}
		req.TaskOverride = task
	}

	p := pipeline.New(client, client, pipelineConfig(), logger)
	overrides, err := profileOverrides()
	if err != nil {
		return err
	}
	p.OverrideProfiles(overrides)

	answer, err := p.Answer(ctx, req, ix)
	if err != nil {
		return err
	}

	jsonOutput, _ := cmd.Flags().GetBool("json")
	return printAnswer(answer, jsonOutput)
}

// buildIndex loads the selected papers into a fresh in-memory index.
func buildIndex(ctx context.Context, cmd *cobra.Command, client *genai.Client, logger *zap.Logger) (*index.Index, []types.Paper, error) {
	cfg := ingestConfig(cmd)

	ids, err := selectedPaperIDs(cmd, cfg.PapersDir)
	if err != nil {
		return nil, nil, err
	}
	if len(ids) == 0 {
		return nil, nil, fmt.Errorf("no papers to load: run \"paper-brain papers search\" first or pass --papers")
	}

	ix, err := index.New()
	if err != nil {
		return nil, nil, err
	}

	builder := ingest.NewBuilder(client, cfg, logger)
	papers, err := builder.Build(ctx, ix, ids, os.Stderr)
	if err != nil {
		ix.Close()
		return nil, nil, err
	}
	return ix, papers, nil
}

func selectedPaperIDs(cmd *cobra.Command, papersDir string) ([]string, error) {
	if flag, _ := cmd.Flags().GetString("papers"); flag != "" {
		var ids []string
		for _, id := range strings.Split(flag, ",") {
			if id = strings.TrimSpace(id); id != "" {
				ids = append(ids, id)
			}
		}
		return ids, nil
	}
	return ingest.ListPapers(papersDir)
}

func printAnswer(answer *types.Answer, jsonOutput bool) error {
	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(answer)
	}

	fmt.Println(answer.Text)

	if len(answer.Citations) > 0 {
		fmt.Printf("\nSources (%d citations, %d papers):\n", answer.Stats.Total, answer.Stats.UniquePapers)
		for _, c := range answer.Citations {
			fmt.Printf("  - %s, p. %d\n", c.PaperTitle, c.Page)
		}
	}
	for _, a := range answer.Anomalies {
		fmt.Fprintf(os.Stderr, "warning: citation %s does not match any loaded content\n", a)
	}
	return nil
}
