package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"minisearch/internal/store"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show config and dictionary statistics",
	Long: "status opens the dictionary database, reports row counts, and shows\n" +
		"the effective configuration. It does not contact the GLM API, so it\n" +
		"works without an API key.",
	RunE: runStatus,
}

func runStatus(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		exitWith(ExitConfigInvalid, "ERROR: "+err.Error())
	}

	ctx := cmd.Context()
	st := store.NewSQLiteStore(cfg.Store.Path)
	if err := st.Init(ctx); err != nil {
		exitWith(ExitStoreUnavailable, "ERROR: "+err.Error())
	}
	defer func() { _ = st.Close() }()

	fields, categories, encodings, err := st.Counts(ctx)
	if err != nil {
		exitWith(ExitStoreUnavailable, "ERROR: "+err.Error())
	}

	keySet := cfg.GLM.APIKey != ""

	if globalFlags.JSON {
		emitNDJSON("status", map[string]interface{}{
			"db_path":     cfg.Store.Path,
			"fields":      fields,
			"categories":  categories,
			"encodings":   encodings,
			"model":       cfg.GLM.Model,
			"base_url":    cfg.GLM.BaseURL,
			"api_key_set": keySet,
			"listen":      cfg.Server.Listen,
			"mcp_path":    cfg.Server.MCPPath,
		})
		return nil
	}

	s := newStyles(cmd.OutOrStdout(), false)
	fmt.Println(s.banner())
	fmt.Println(s.kv("Dictionary", cfg.Store.Path))
	fmt.Println(s.kv("Fields", strconv.Itoa(fields)))
	fmt.Println(s.kv("Categories", strconv.Itoa(categories)))
	fmt.Println(s.kv("Encodings", strconv.Itoa(encodings)))
	fmt.Println(s.kv("Model", cfg.GLM.Model))
	fmt.Println(s.kv("Base URL", cfg.GLM.BaseURL))
	if keySet {
		fmt.Println(s.kv("API key", "set"))
	} else {
		fmt.Println(s.kv("API key", "missing (set GLM_API_KEY)"))
	}
	fmt.Println(s.kv("Listen", cfg.Server.Listen))
	fmt.Println(s.kv("MCP path", cfg.Server.MCPPath))
	return nil
}
