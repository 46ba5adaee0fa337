package cli

import (
	"fmt"
	"log"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"minisearch/internal/mcp"
	"minisearch/internal/web"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the web chat server and the MCP endpoint",
	RunE:  runServe,
}

var (
	serveListen    string
	serveStaticDir string
	serveMCPPath   string
)

func init() {
	serveCmd.Flags().StringVar(&serveListen, "listen", "", "host:port to listen on (overrides config)")
	serveCmd.Flags().StringVar(&serveStaticDir, "static-dir", "", "directory with the chat UI (overrides config)")
	serveCmd.Flags().StringVar(&serveMCPPath, "mcp-path", "", "HTTP path for the MCP endpoint (overrides config)")
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		exitWith(ExitConfigInvalid, "ERROR: "+err.Error())
	}
	if serveListen != "" {
		cfg.Server.Listen = serveListen
	}
	if serveStaticDir != "" {
		cfg.Server.StaticDir = serveStaticDir
	}
	if serveMCPPath != "" {
		cfg.Server.MCPPath = serveMCPPath
	}
	if err := cfg.Validate(); err != nil {
		exitWith(ExitConfigInvalid, "ERROR: "+err.Error())
	}

	logf := func(string, ...interface{}) {}
	if cfg.Verbose && !globalFlags.JSON {
		logf = log.New(os.Stderr, "minisearch ", log.LstdFlags).Printf
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, st, err := buildAgent(ctx, cfg, logf)
	if err != nil {
		exitWith(ExitStoreUnavailable, "ERROR: "+err.Error())
	}
	defer func() { _ = st.Close() }()

	listener, err := net.Listen("tcp", cfg.Server.Listen)
	if err != nil {
		exitWith(ExitBindFailure, "ERROR: server bind failure: "+err.Error())
	}

	mcpServer := mcp.NewServer(mcp.Options{
		Dispatcher: a.Dispatcher(),
		RateRPS:    cfg.Server.RateRPS,
		RateBurst:  cfg.Server.RateBurst,
		Logf:       logf,
	})

	server := web.NewServer(web.Options{
		Agent:     a,
		StaticDir: cfg.Server.StaticDir,
		MCPPath:   cfg.Server.MCPPath,
		MCP:       mcpServer.Handler(),
		RateRPS:   cfg.Server.RateRPS,
		RateBurst: cfg.Server.RateBurst,
		Logf:      logf,
	})

	baseURL := fmt.Sprintf("http://%s", listener.Addr().String())

	if globalFlags.JSON {
		emitNDJSON("server_started", map[string]interface{}{
			"url":     baseURL,
			"mcp_url": baseURL + cfg.Server.MCPPath,
			"db_path": cfg.Store.Path,
			"model":   cfg.GLM.Model,
		})
	} else if !globalFlags.Quiet {
		s := newStyles(os.Stdout, false)
		fmt.Println(s.banner())
		fmt.Println(s.kv("Chat UI", baseURL+"/"))
		fmt.Println(s.kv("Ask API", baseURL+"/api/ask"))
		fmt.Println(s.kv("MCP", baseURL+cfg.Server.MCPPath))
		fmt.Println(s.kv("Dictionary", cfg.Store.Path))
		fmt.Println(s.kv("Model", cfg.GLM.Model))
		fmt.Println(s.dim("  Ctrl-C to stop"))
	}

	return server.Serve(ctx, listener)
}
