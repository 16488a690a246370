// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pdiddy/paper-brain/internal/genai"
	"github.com/pdiddy/paper-brain/internal/ingest"
	"github.com/pdiddy/paper-brain/internal/pipeline"
	"github.com/pdiddy/paper-brain/internal/session"
	"github.com/pdiddy/paper-brain/pkg/types"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Hold a conversation over the loaded papers",
	Long: `Chat indexes the selected papers once into a session, then answers
questions interactively until EOF or "exit". The session expires after
a period of inactivity; each question runs through the same retrieval
pipeline as "ask".`,
	RunE: runChat,
}

func init() {
	chatCmd.Flags().String("papers", "", "comma-separated paper ids to load (default: all papers on disk)")
	chatCmd.Flags().String("papers-dir", "", "base directory for papers (contains metadata/ and text/)")

	rootCmd.AddCommand(chatCmd)
}

func runChat(cmd *cobra.Command, args []string) error {
	logger, err := newLogger(cmd)
	if err != nil {
		return err
	}
	defer logger.Sync()

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	registry := session.NewRegistry(sessionConfig(), logger)
	go registry.Run(ctx)

	s, err := registry.Create()
	if err != nil {
		return err
	}

	client := genai.NewClient(genaiConfig(), logger)
	cfg := ingestConfig(cmd)
	ids, err := selectedPaperIDs(cmd, cfg.PapersDir)
	if err != nil {
		return err
	}
	if len(ids) == 0 {
		return fmt.Errorf("no papers to load: run \"paper-brain papers search\" first or pass --papers")
	}

	builder := ingest.NewBuilder(client, cfg, logger)
	papers, err := builder.Build(ctx, s.Index, ids, os.Stderr)
	if err != nil {
		return err
	}
	s.Papers = papers

	fmt.Printf("Session %s: %d paper(s) loaded. Ask away (\"exit\" to quit).\n", s.ID, len(papers))

	p := pipeline.New(client, client, pipelineConfig(), logger)
	overrides, err := profileOverrides()
	if err != nil {
		return err
	}
	p.OverrideProfiles(overrides)

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			break
		}
		question := strings.TrimSpace(scanner.Text())
		if question == "" {
			continue
		}
		if question == "exit" || question == "quit" {
			break
		}

		current, err := registry.Get(s.ID)
		if err != nil {
			if errors.Is(err, session.ErrMessageLimit) {
				fmt.Fprintln(os.Stderr, "Session message limit reached.")
				break
			}
			if errors.Is(err, session.ErrNotFound) {
				fmt.Fprintln(os.Stderr, "Session expired.")
				break
			}
			return err
		}

		req := pipeline.Request{
			Query: question,
			Progress: func(e types.StageTrace) {
				if e.Status == types.StatusInProgress {
					fmt.Fprintf(os.Stderr, "  %s...\n", e.Stage)
				}
			},
		}
		answer, err := p.Answer(ctx, req, current.Index)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			continue
		}
		fmt.Println()
		if err := printAnswer(answer, false); err != nil {
			return err
		}
		fmt.Println()
	}

	if err := registry.Delete(s.ID); err != nil && !errors.Is(err, session.ErrNotFound) {
		return err
	}
	return scanner.Err()
}
