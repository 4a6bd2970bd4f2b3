package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/lherron/syncp/internal/treecopy"
)

// DefaultListenAddr is where syncpd listens unless configured otherwise
const DefaultListenAddr = "127.0.0.1:8420"

// Config represents the application configuration
type Config struct {
	Endpoint              string `yaml:"endpoint"`
	Token                 string `yaml:"token"`
	DBPath                string `yaml:"db_path"`
	Principal             string `yaml:"principal"`
	ListenAddr            string `yaml:"listen_addr"`
	LogLevel              string `yaml:"log_level"`
	Output                string `yaml:"output"`
	MaxFileHandlesPerCopy int    `yaml:"max_file_handles_per_copy"`
}

// Load loads configuration from multiple sources with precedence:
// 1. Environment variables
// 2. ./.env.local (dotenv) - walks up parent directories to find it
// 3. ~/.config/syncp/config.yaml (YAML)
func Load() (*Config, error) {
	cfg := &Config{
		ListenAddr:            DefaultListenAddr,
		LogLevel:              "info",
		Output:                "table",
		MaxFileHandlesPerCopy: treecopy.DefaultMaxFileHandlesPerCopyRequest,
	}

	// godotenv.Load never overrides variables already set
	if envPath := findEnvLocal(); envPath != "" {
		_ = godotenv.Load(envPath)
	}

	if err := loadYAMLConfig(cfg); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if endpoint := os.Getenv("SYNCP_ENDPOINT"); endpoint != "" {
		cfg.Endpoint = endpoint
	}
	if token := getEnvOrFile("SYNCP_TOKEN", "SYNCP_TOKEN_FILE"); token != "" {
		cfg.Token = token
	}
	if dbPath := getEnvOrFile("SYNCP_DB_PATH", "SYNCP_DB_PATH_FILE"); dbPath != "" {
		cfg.DBPath = dbPath
	}
	if principal := os.Getenv("SYNCP_PRINCIPAL"); principal != "" {
		cfg.Principal = principal
	}
	if addr := os.Getenv("SYNCP_LISTEN"); addr != "" {
		cfg.ListenAddr = addr
	}
	if logLevel := os.Getenv("SYNCP_LOG_LEVEL"); logLevel != "" {
		cfg.LogLevel = logLevel
	}
	if output := os.Getenv("SYNCP_OUTPUT"); output != "" {
		cfg.Output = output
	}
	if limit := os.Getenv("SYNCP_MAX_FILE_HANDLES_PER_COPY"); limit != "" {
		n, err := strconv.Atoi(limit)
		if err != nil || n <= 0 {
			return nil, fmt.Errorf("SYNCP_MAX_FILE_HANDLES_PER_COPY must be a positive integer, got %q", limit)
		}
		cfg.MaxFileHandlesPerCopy = n
	}

	if cfg.DBPath == "" {
		// Check for project-local database first
		if _, err := os.Stat(".syncp/syncp.db"); err == nil {
			cfg.DBPath = ".syncp/syncp.db"
		} else {
			homeDir, err := os.UserHomeDir()
			if err != nil {
				return nil, fmt.Errorf("failed to get home directory: %w", err)
			}
			cfg.DBPath = filepath.Join(homeDir, ".local", "share", "syncp", "syncp.db")
		}
	}

	return cfg, nil
}

// UseRemote reports whether commands talk to a syncpd endpoint instead of
// the local database
func (c *Config) UseRemote() bool {
	return c.Endpoint != ""
}

// loadYAMLConfig loads configuration from ~/.config/syncp/config.yaml
func loadYAMLConfig(cfg *Config) error {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return err
	}

	configPath := filepath.Join(homeDir, ".config", "syncp", "config.yaml")
	data, err := os.ReadFile(configPath)
	if err != nil {
		return err
	}

	return yaml.Unmarshal(data, cfg)
}

// getEnvOrFile gets an environment variable value, or reads it from a file
// if the _FILE variant is set
func getEnvOrFile(envVar, fileVar string) string {
	if val := os.Getenv(envVar); val != "" {
		return val
	}

	if filePath := os.Getenv(fileVar); filePath != "" {
		data, err := os.ReadFile(filePath)
		if err == nil {
			return strings.TrimSpace(string(data))
		}
	}

	return ""
}

// findEnvLocal searches for .env.local starting from cwd and walking up
// parent directories. Stops at the user's home directory.
// Returns the path to .env.local if found, empty string otherwise.
func findEnvLocal() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		if _, err := os.Stat(".env.local"); err == nil {
			return ".env.local"
		}
		return ""
	}

	cwd, err := os.Getwd()
	if err != nil {
		return ""
	}

	homeDir = filepath.Clean(homeDir)
	dir := filepath.Clean(cwd)

	for {
		envPath := filepath.Join(dir, ".env.local")
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}

		if dir == homeDir {
			break
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}

		dir = parent
	}

	return ""
}
