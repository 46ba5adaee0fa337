package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"

	"minisearch/internal/protocol"
)

const (
	DefaultConfigPath = "minisearch.toml"
	DefaultDBPath     = "./ukb_datadict.db"
	DefaultStaticDir  = "./public"

	DefaultGLMBaseURL     = "https://open.bigmodel.cn/api/paas/v4"
	DefaultGLMModel       = "glm-4.5-flash"
	DefaultGLMTimeoutSec  = 30
	DefaultGLMMaxTokens   = 4096
	DefaultGLMTemperature = 0.4

	DefaultMaxToolCalls = 5
)

type Config struct {
	Server  ServerConfig `toml:"server"`
	GLM     GLMConfig    `toml:"glm"`
	Store   StoreConfig  `toml:"store"`
	Agent   AgentConfig  `toml:"agent"`
	Verbose bool         `toml:"verbose"`
}

type ServerConfig struct {
	Listen    string `toml:"listen"`
	StaticDir string `toml:"static_dir"`
	MCPPath   string `toml:"mcp_path"`
	// Per-IP token bucket for non-loopback clients; zero disables.
	RateRPS   float64 `toml:"rate_rps"`
	RateBurst int     `toml:"rate_burst"`
}

type GLMConfig struct {
	// APIKey only ever comes from the environment or dotenv files,
	// never from config.toml.
	APIKey         string  `toml:"-"`
	Model          string  `toml:"model"`
	BaseURL        string  `toml:"base_url"`
	TimeoutSeconds int     `toml:"timeout_seconds"`
	MaxTokens      int     `toml:"max_tokens"`
	Temperature    float64 `toml:"temperature"`
	RequestsPerMin int     `toml:"requests_per_minute"`
}

// Timeout returns the model-call timeout as a duration.
func (g GLMConfig) Timeout() time.Duration {
	return time.Duration(g.TimeoutSeconds) * time.Second
}

type StoreConfig struct {
	Path string `toml:"path"`
}

type AgentConfig struct {
	MaxToolCalls int `toml:"max_tool_calls"`
}

func Default() Config {
	return Config{
		Server: ServerConfig{
			Listen:    protocol.DefaultListenAddr,
			StaticDir: DefaultStaticDir,
			MCPPath:   protocol.DefaultMCPPath,
			RateRPS:   5,
			RateBurst: 20,
		},
		GLM: GLMConfig{
			Model:          DefaultGLMModel,
			BaseURL:        DefaultGLMBaseURL,
			TimeoutSeconds: DefaultGLMTimeoutSec,
			MaxTokens:      DefaultGLMMaxTokens,
			Temperature:    DefaultGLMTemperature,
			RequestsPerMin: 60,
		},
		Store: StoreConfig{Path: DefaultDBPath},
		Agent: AgentConfig{MaxToolCalls: DefaultMaxToolCalls},
	}
}

// Load builds the effective config. Precedence, highest first:
// process env, .env.local, .env, the toml file at path, defaults.
func Load(path string) (Config, error) {
	if err := loadDotEnvPrecedence(); err != nil {
		return Config{}, err
	}

	cfg := Default()
	if err := mergeFile(&cfg, path); err != nil {
		return Config{}, err
	}
	mergeEnv(&cfg)
	return cfg, nil
}

func loadDotEnvPrecedence() error {
	// First file to set a key wins, and keys already present in the
	// process environment are never overwritten.
	for _, name := range []string{".env.local", ".env"} {
		values, err := godotenv.Read(name)
		if err != nil {
			continue
		}
		for k, v := range values {
			if _, exists := os.LookupEnv(k); !exists {
				if setErr := os.Setenv(k, v); setErr != nil {
					return setErr
				}
			}
		}
	}
	return nil
}

func mergeFile(cfg *Config, path string) error {
	if strings.TrimSpace(path) == "" {
		path = DefaultConfigPath
	}
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}
	_, err := toml.DecodeFile(path, cfg)
	return err
}

func mergeEnv(cfg *Config) {
	if v := strings.TrimSpace(os.Getenv("GLM_API_KEY")); v != "" {
		cfg.GLM.APIKey = v
	}
	if v := strings.TrimSpace(os.Getenv("GLM_MODEL")); v != "" {
		cfg.GLM.Model = v
	}
	if v := strings.TrimSpace(os.Getenv("GLM_BASE_URL")); v != "" {
		cfg.GLM.BaseURL = v
	}
	if v, ok := envInt("GLM_TIMEOUT_SECONDS"); ok {
		cfg.GLM.TimeoutSeconds = v
	}
	if v, ok := envInt("GLM_MAX_TOKENS"); ok {
		cfg.GLM.MaxTokens = v
	}
	if v, ok := envFloat("GLM_TEMPERATURE"); ok {
		cfg.GLM.Temperature = v
	}
	if v, ok := envInt("GLM_REQUESTS_PER_MINUTE"); ok {
		cfg.GLM.RequestsPerMin = v
	}
	if v := strings.TrimSpace(os.Getenv("DB_PATH")); v != "" {
		cfg.Store.Path = v
	}
	if v := strings.TrimSpace(os.Getenv("MINISEARCH_LISTEN")); v != "" {
		cfg.Server.Listen = v
	}
	if v := strings.TrimSpace(os.Getenv("MINISEARCH_STATIC_DIR")); v != "" {
		cfg.Server.StaticDir = v
	}
	if v := strings.TrimSpace(os.Getenv("MINISEARCH_MCP_PATH")); v != "" {
		cfg.Server.MCPPath = v
	}
	if v, ok := envFloat("MINISEARCH_RATE_RPS"); ok {
		cfg.Server.RateRPS = v
	}
	if v, ok := envInt("MINISEARCH_RATE_BURST"); ok {
		cfg.Server.RateBurst = v
	}
	if v, ok := envInt("MINISEARCH_MAX_TOOL_CALLS"); ok {
		cfg.Agent.MaxToolCalls = v
	}
	if v := strings.TrimSpace(os.Getenv("MINISEARCH_VERBOSE")); v != "" {
		cfg.Verbose = v == "1" || strings.EqualFold(v, "true")
	}
}

func envInt(key string) (int, bool) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return 0, false
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, false
	}
	return n, true
}

func envFloat(key string) (float64, bool) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

// Validate checks the parts of the config that must be right before the
// process can serve anything. Called once at startup; failures are fatal.
func (c Config) Validate() error {
	if strings.TrimSpace(c.GLM.APIKey) == "" {
		return errors.New("GLM_API_KEY is required: set it in the environment or in .env")
	}
	if strings.TrimSpace(c.GLM.BaseURL) == "" || !strings.HasPrefix(c.GLM.BaseURL, "http") {
		return fmt.Errorf("glm.base_url must be an http(s) URL, got %q", c.GLM.BaseURL)
	}
	if strings.TrimSpace(c.GLM.Model) == "" {
		return errors.New("glm.model must not be empty")
	}
	if c.GLM.TimeoutSeconds <= 0 {
		return fmt.Errorf("glm.timeout_seconds must be positive, got %d", c.GLM.TimeoutSeconds)
	}
	if c.Agent.MaxToolCalls <= 0 {
		return fmt.Errorf("agent.max_tool_calls must be positive, got %d", c.Agent.MaxToolCalls)
	}
	if _, _, err := net.SplitHostPort(strings.TrimSpace(c.Server.Listen)); err != nil {
		return fmt.Errorf("server.listen must be host:port (e.g. %q): %w", protocol.DefaultListenAddr, err)
	}
	if !strings.HasPrefix(c.Server.MCPPath, "/") {
		return errors.New("server.mcp_path must start with \"/\"")
	}
	info, err := os.Stat(c.Store.Path)
	if err != nil {
		return fmt.Errorf("store.path: database file %q not found: %w", c.Store.Path, err)
	}
	if info.IsDir() {
		return fmt.Errorf("store.path: %q is a directory, not a sqlite file", c.Store.Path)
	}
	return nil
}
