package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"minisearch/internal/agent"
	"minisearch/internal/catalog"
	"minisearch/internal/config"
	"minisearch/internal/dispatch"
	"minisearch/internal/glm"
	"minisearch/internal/store"
)

// Exit codes.
const (
	ExitSuccess          = 0
	ExitGenericError     = 1
	ExitConfigInvalid    = 2
	ExitStoreUnavailable = 3
	ExitBindFailure      = 4
)

// GlobalFlags holds flags shared across all commands.
type GlobalFlags struct {
	ConfigPath string
	DBPath     string
	JSON       bool
	Quiet      bool
	Verbose    bool
}

var globalFlags GlobalFlags

var rootCmd = &cobra.Command{
	Use:   "minisearch",
	Short: "Conversational assistant for the UK Biobank data dictionary",
	Long: "minisearch answers natural-language questions about UK Biobank fields.\n" +
		"Questions go to the GLM API with a declared tool set; lookups run against\n" +
		"a local read-only copy of the field dictionary.",
}

func init() {
	rootCmd.PersistentFlags().StringVar(&globalFlags.ConfigPath, "config", config.DefaultConfigPath, "config file path")
	rootCmd.PersistentFlags().StringVar(&globalFlags.DBPath, "db", "", "dictionary database path (overrides config)")
	rootCmd.PersistentFlags().BoolVar(&globalFlags.JSON, "json", false, "emit NDJSON events for automation/logging")
	rootCmd.PersistentFlags().BoolVar(&globalFlags.Quiet, "quiet", false, "reduce output")
	rootCmd.PersistentFlags().BoolVar(&globalFlags.Verbose, "verbose", false, "verbose logging")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(askCmd)
	rootCmd.AddCommand(chatCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(versionCmd)
}

// Execute runs the root command and returns an error; exit code is set by RunE.
func Execute() error {
	return rootCmd.Execute()
}

// exitWith prints message to stderr and exits with code.
func exitWith(code int, msg string) {
	fmt.Fprintln(os.Stderr, msg)
	os.Exit(code)
}

// loadConfig builds the effective config with flag overrides applied.
func loadConfig() (config.Config, error) {
	cfg, err := config.Load(globalFlags.ConfigPath)
	if err != nil {
		return config.Config{}, err
	}
	if globalFlags.DBPath != "" {
		cfg.Store.Path = globalFlags.DBPath
	}
	if globalFlags.Verbose {
		cfg.Verbose = true
	}
	return cfg, nil
}

// buildAgent wires the full pipeline: store, catalog, dispatcher, GLM
// client, agent. The caller owns the returned store and must Close it.
func buildAgent(ctx context.Context, cfg config.Config, logf func(string, ...interface{})) (*agent.Agent, *store.SQLiteStore, error) {
	st := store.NewSQLiteStore(cfg.Store.Path)
	if err := st.Init(ctx); err != nil {
		return nil, nil, err
	}

	snap, err := st.LoadCatalog(ctx)
	if err != nil {
		_ = st.Close()
		return nil, nil, err
	}
	cat, err := catalog.New(snap)
	if err != nil {
		_ = st.Close()
		return nil, nil, err
	}

	client := glm.NewClient(glm.Options{
		BaseURL:           cfg.GLM.BaseURL,
		APIKey:            cfg.GLM.APIKey,
		Model:             cfg.GLM.Model,
		Temperature:       cfg.GLM.Temperature,
		MaxTokens:         cfg.GLM.MaxTokens,
		Timeout:           cfg.GLM.Timeout(),
		RequestsPerMinute: cfg.GLM.RequestsPerMin,
	})

	a := agent.New(agent.Options{
		Client:       client,
		Dispatcher:   dispatch.New(cat),
		MaxToolCalls: cfg.Agent.MaxToolCalls,
		Logf:         logf,
	})
	return a, st, nil
}
