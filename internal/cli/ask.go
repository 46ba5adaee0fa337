package cli

import (
	"encoding/json"
	"fmt"
	"log"
	"os"

	"github.com/spf13/cobra"
)

var askCmd = &cobra.Command{
	Use:   "ask \"question\"",
	Short: "Ask one question and print the answer",
	Long: "ask runs a single conversation turn and prints the phrased answer.\n" +
		"With --json the full response object is printed instead.",
	Args: cobra.ExactArgs(1),
	RunE: runAsk,
}

func runAsk(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		exitWith(ExitConfigInvalid, "ERROR: "+err.Error())
	}
	if err := cfg.Validate(); err != nil {
		exitWith(ExitConfigInvalid, "ERROR: "+err.Error())
	}

	logf := func(string, ...interface{}) {}
	if cfg.Verbose && !globalFlags.JSON {
		logf = log.New(os.Stderr, "minisearch ", log.LstdFlags).Printf
	}

	ctx := cmd.Context()
	a, st, err := buildAgent(ctx, cfg, logf)
	if err != nil {
		exitWith(ExitStoreUnavailable, "ERROR: "+err.Error())
	}
	defer func() { _ = st.Close() }()

	resp := a.RunSafe(ctx, args[0])

	if globalFlags.JSON {
		enc := json.NewEncoder(os.Stdout)
		if err := enc.Encode(resp); err != nil {
			return err
		}
		if !resp.OK {
			os.Exit(ExitGenericError)
		}
		return nil
	}

	if !resp.OK {
		s := newStyles(os.Stderr, false)
		fmt.Fprintf(os.Stderr, "%s %s\n", s.errPrefix(), resp.Message)
		os.Exit(ExitGenericError)
	}

	fmt.Println(resp.Answer)
	return nil
}
