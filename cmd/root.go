package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/joescharf/prd/internal/agents"
	"github.com/joescharf/prd/internal/orchestrator"
	"github.com/joescharf/prd/internal/output"
	"github.com/joescharf/prd/internal/store"
)

// Package-level shared dependencies, initialized in cobra.OnInitialize.
var (
	ui        *output.UI
	dataStore store.Store

	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "prd",
	Short: "PRD review engine - run a panel of specialist reviewers over a document",
	Long: `prd reviews product requirement documents with a panel of
specialist reviewers (engineer, UX designer, QA tester, PM), merges
their findings into one prioritized issue list, and anchors each issue
back to the exact text it refers to.`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	DisableAutoGenTag: true,
}

// Execute is the main entry point called from main.go.
func Execute(version, commit, date string) {
	buildVersion = version
	buildCommit = commit
	buildDate = date

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig, initDeps)

	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Verbose output")
	rootCmd.PersistentFlags().String("config", "", "Config file (default ~/.config/prd/config.yaml)")
}

func initConfig() {
	// If --config is explicitly set, use that file
	if cfgFile, _ := rootCmd.PersistentFlags().GetString("config"); cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: cannot find home directory: %v\n", err)
			os.Exit(1)
		}

		configDir := filepath.Join(home, ".config", "prd")
		viper.AddConfigPath(configDir)
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
	}

	viper.SetEnvPrefix("PRD")
	viper.AutomaticEnv()

	// Defaults via viper.SetDefault()
	home, _ := os.UserHomeDir()
	defaultConfigDir := filepath.Join(home, ".config", "prd")

	viper.SetDefault("state_dir", defaultConfigDir)
	viper.SetDefault("db_path", "")
	viper.SetDefault("port", 8080)
	viper.SetDefault("anthropic.api_key", "")
	viper.SetDefault("anthropic.model", "claude-haiku-4-5-20251001")
	viper.SetDefault("review.timeout", "2m")
	viper.SetDefault("review.agents", "")
	viper.SetDefault("review.max_issues_per_agent", 5)

	// Read config file if it exists (optional)
	_ = viper.ReadInConfig()
}

func initDeps() {
	ui = output.New()
	ui.Verbose = verbose
}

// getStore returns the shared store, initializing it on first call.
// An empty db_path selects the in-memory store; setting a path enables
// persistent review history via SQLite.
func getStore() (store.Store, error) {
	if dataStore != nil {
		return dataStore, nil
	}

	dbPath := viper.GetString("db_path")
	if dbPath == "" {
		dataStore = store.NewMemoryStore()
		return dataStore, nil
	}

	s, err := store.NewSQLiteStore(dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := s.Migrate(rootCmd.Context()); err != nil {
		_ = s.Close()
		return nil, fmt.Errorf("migrate database: %w", err)
	}

	dataStore = s
	return dataStore, nil
}

// getOrchestrator builds the review orchestrator with its specialist
// registry. With useMock, canned specialists replace the LLM client.
func getOrchestrator(useMock bool) (*orchestrator.Orchestrator, store.Store, error) {
	s, err := getStore()
	if err != nil {
		return nil, nil, err
	}

	var reg *agents.Registry
	if useMock {
		reg = agents.StaticRegistry()
	} else {
		client := newLLMClient()
		if client == nil {
			return nil, nil, fmt.Errorf("no Anthropic API key configured: set anthropic.api_key, PRD_ANTHROPIC_API_KEY, or ANTHROPIC_API_KEY (or pass --mock)")
		}
		reg = client.Registry()
	}

	opts := orchestrator.Options{
		DefaultAgents:     splitAgents(viper.GetString("review.agents")),
		MaxIssuesPerAgent: viper.GetInt("review.max_issues_per_agent"),
	}
	return orchestrator.New(s, reg, opts), s, nil
}

// splitAgents parses a comma-separated agent key list from config or flags.
func splitAgents(s string) []string {
	if s == "" {
		return nil
	}
	var keys []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			keys = append(keys, part)
		}
	}
	return keys
}
