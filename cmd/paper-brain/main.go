// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the paper-brain CLI.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/pdiddy/paper-brain/internal/secrets"
	"github.com/pdiddy/paper-brain/pkg/types"
)

// version is set at build time via ldflags.
var version = "dev"

// loadedSecrets holds API keys loaded from .secrets/ at startup.
var loadedSecrets map[string]string

// secretDefault returns the secret value for key if it exists, or fallback otherwise.
func secretDefault(key, fallback string) string {
	if fallback != "" {
		return fallback
	}
	if v, ok := loadedSecrets[key]; ok {
		return v
	}
	return ""
}

// rootCmd is the base command for the paper-brain CLI.
var rootCmd = &cobra.Command{
	Use:   "paper-brain",
	Short: "Question answering over academic papers with page-level citations",
	Long: `paper-brain answers natural-language questions over a working set of
academic papers. Every claim in an answer cites the paper title and page
it came from.

Discover papers with "papers search", then ask one-shot questions with
"ask" or hold a conversation with "chat". Questions run through query
classification, multi-query hybrid retrieval, rank fusion, reranking,
paper-aware diversification, and token budgeting before generation.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		s, err := secrets.Load(".secrets/")
		if err != nil {
			return err
		}
		loadedSecrets = s
		if len(s) > 0 {
			keys := make([]string, 0, len(s))
			for k := range s {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			fmt.Fprintf(os.Stderr, "Loaded secrets: %v\n", keys)
		}
		return nil
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default: ./paper-brain.yaml or ~/.config/paper-brain/config.yaml)")
	rootCmd.PersistentFlags().Bool("verbose", false, "enable debug logging")
}

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("paper-brain")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "paper-brain"))
		}
	}

	viper.SetEnvPrefix("PAPER_BRAIN")
	viper.AutomaticEnv()

	viper.SetDefault("model", "gemini-2.5-flash-lite")
	viper.SetDefault("embed_model", "text-embedding-004")
	viper.SetDefault("temperature", 0.3)
	viper.SetDefault("timeout", "20s")
	viper.SetDefault("papers_dir", "papers")
	viper.SetDefault("chunk_tokens", 512)
	viper.SetDefault("rrf_k", 60)
	viper.SetDefault("cross_paper_similarity", 0.3)
	viper.SetDefault("expansion_count", 2)

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// newLogger builds the CLI logger. Debug level with --verbose,
// warnings and up otherwise so progress output stays readable.
func newLogger(cmd *cobra.Command) (*zap.Logger, error) {
	verbose, _ := cmd.Flags().GetBool("verbose")
	cfg := zap.NewProductionConfig()
	cfg.OutputPaths = []string{"stderr"}
	if verbose {
		cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	} else {
		cfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	}
	return cfg.Build()
}

func genaiConfig() types.GenAIConfig {
	return types.GenAIConfig{
		HTTPConfig: types.HTTPConfig{
			Timeout:   viper.GetDuration("timeout"),
			UserAgent: "paper-brain/" + version,
		},
		Model:           viper.GetString("model"),
		EmbedModel:      viper.GetString("embed_model"),
		APIKey:          secretDefault("gemini-api-key", viper.GetString("api_key")),
		SecondaryAPIKey: secretDefault("gemini-api-key-secondary", viper.GetString("secondary_api_key")),
		Temperature:     viper.GetFloat64("temperature"),
	}
}

// profileOverrides reads optional per-task parameter overrides from the
// config file's "profiles" list.
func profileOverrides() ([]types.TaskProfile, error) {
	var overrides []types.TaskProfile
	if err := viper.UnmarshalKey("profiles", &overrides); err != nil {
		return nil, fmt.Errorf("parsing profiles config: %w", err)
	}
	return overrides, nil
}

func pipelineConfig() types.PipelineConfig {
	return types.PipelineConfig{
		RRFK:                 viper.GetInt("rrf_k"),
		CrossPaperSimilarity: viper.GetFloat64("cross_paper_similarity"),
		ExpansionCount:       viper.GetInt("expansion_count"),
	}
}

func ingestConfig(cmd *cobra.Command) types.IngestConfig {
	papersDir, _ := cmd.Flags().GetString("papers-dir")
	if papersDir == "" {
		papersDir = viper.GetString("papers_dir")
	}
	return types.IngestConfig{
		PapersDir:   papersDir,
		ChunkTokens: viper.GetInt("chunk_tokens"),
	}
}

func searchConfig(maxResults int) types.SearchConfig {
	return types.SearchConfig{
		HTTPConfig: types.HTTPConfig{
			Timeout:   viper.GetDuration("timeout"),
			UserAgent: "paper-brain/" + version,
		},
		MaxResults: maxResults,
	}
}

func sessionConfig() types.SessionConfig {
	return types.SessionConfig{
		TTL:           viper.GetDuration("session_ttl"),
		SweepInterval: viper.GetDuration("session_sweep_interval"),
		MaxMessages:   viper.GetInt("session_max_messages"),
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
