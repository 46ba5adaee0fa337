package cli

import (
	"log"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"minisearch/internal/tui"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Start an interactive chat session in the terminal",
	RunE:  runChat,
}

func runChat(cmd *cobra.Command, _ []string) error {
	if !term.IsTerminal(int(os.Stdin.Fd())) {
		exitWith(ExitGenericError, "ERROR: chat needs an interactive terminal; use \"minisearch ask\" for scripting")
	}

	cfg, err := loadConfig()
	if err != nil {
		exitWith(ExitConfigInvalid, "ERROR: "+err.Error())
	}
	if err := cfg.Validate(); err != nil {
		exitWith(ExitConfigInvalid, "ERROR: "+err.Error())
	}

	logf := func(string, ...interface{}) {}
	if cfg.Verbose {
		logf = log.New(os.Stderr, "minisearch ", log.LstdFlags).Printf
	}

	ctx := cmd.Context()
	a, st, err := buildAgent(ctx, cfg, logf)
	if err != nil {
		exitWith(ExitStoreUnavailable, "ERROR: "+err.Error())
	}
	defer func() { _ = st.Close() }()

	return tui.Run(ctx, tui.Options{
		Agent:  a,
		Model:  cfg.GLM.Model,
		DBPath: cfg.Store.Path,
	})
}
