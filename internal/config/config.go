package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"

	"github.com/pelletier/go-toml/v2"
)

// Config holds all recall configuration. Every component receives the piece
// it needs at construction; nothing reads the environment after Load.
type Config struct {
	Server    ServerConfig    `toml:"server"`
	Workspace WorkspaceConfig `toml:"workspace"`
	Database  DatabaseConfig  `toml:"database"`
	Semantic  SemanticConfig  `toml:"semantic"`
	Graph     GraphConfig     `toml:"graph"`
	Salience  SalienceConfig  `toml:"salience"`
	Search    SearchConfig    `toml:"search"`
}

type ServerConfig struct {
	Bind string `toml:"bind"`
	Port int    `toml:"port"`
}

type WorkspaceConfig struct {
	Root     string `toml:"root"`      // workspace root directory
	NotesDir string `toml:"notes_dir"` // note documents, relative to root
}

type DatabaseConfig struct {
	Path string `toml:"path"`
}

// SemanticConfig describes the external semantic-search service.
type SemanticConfig struct {
	Enabled        bool `toml:"enabled"`
	Port           int  `toml:"port"`
	TimeoutSeconds int  `toml:"timeout"`
}

type GraphConfig struct {
	DefaultDepth int `toml:"default_depth"`
}

type SalienceConfig struct {
	MaxDays int `toml:"max_days"` // decay window in days
}

type SearchConfig struct {
	VectorWeight  float64 `toml:"vector_weight"`
	KeywordWeight float64 `toml:"keyword_weight"`
}

// Default returns a Config with sensible defaults.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Bind: "127.0.0.1",
			Port: 38111,
		},
		Workspace: WorkspaceConfig{
			Root:     "", // resolved at runtime (env or cwd)
			NotesDir: "notes",
		},
		Database: DatabaseConfig{
			Path: "", // resolved at runtime via store.DefaultDBPath()
		},
		Semantic: SemanticConfig{
			Enabled:        true,
			Port:           37777,
			TimeoutSeconds: 10,
		},
		Graph: GraphConfig{
			DefaultDepth: 2,
		},
		Salience: SalienceConfig{
			MaxDays: 365,
		},
		Search: SearchConfig{
			VectorWeight:  0.6,
			KeywordWeight: 0.4,
		},
	}
}

// DefaultPath returns the default config file path: ~/.recall/config.toml
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("get home dir: %w", err)
	}
	return filepath.Join(home, ".recall", "config.toml"), nil
}

// Load reads a TOML config file on top of the defaults and then applies
// environment overrides. A missing file is not an error.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
			// fall through to defaults
		case err != nil:
			return cfg, fmt.Errorf("read config %s: %w", path, err)
		default:
			if err := toml.Unmarshal(data, &cfg); err != nil {
				return cfg, fmt.Errorf("parse config %s: %w", path, err)
			}
		}
	}

	cfg.applyEnv()
	return cfg, nil
}

// applyEnv maps recognized environment variables onto the config.
func (c *Config) applyEnv() {
	if root := os.Getenv("WORKSPACE_DIR"); root != "" {
		c.Workspace.Root = root
	}
	if p := os.Getenv("RECALL_DB"); p != "" {
		c.Database.Path = p
	}
	if p := os.Getenv("RECALL_SEMANTIC_PORT"); p != "" {
		if n, err := strconv.Atoi(p); err == nil && n > 0 {
			c.Semantic.Port = n
		}
	}
	if v := os.Getenv("RECALL_SEMANTIC_ENABLED"); v != "" {
		c.Semantic.Enabled = v == "true" || v == "1"
	}
}

// WorkspaceRoot resolves the workspace root, defaulting to the current directory.
func (c *Config) WorkspaceRoot() string {
	if c.Workspace.Root != "" {
		return c.Workspace.Root
	}
	wd, err := os.Getwd()
	if err != nil {
		return "."
	}
	return wd
}

// NotesPath returns the absolute notes directory.
func (c *Config) NotesPath() string {
	return filepath.Join(c.WorkspaceRoot(), c.Workspace.NotesDir)
}

// SemanticURL returns the semantic-search endpoint URL.
func (c *Config) SemanticURL() string {
	return fmt.Sprintf("http://localhost:%d/search", c.Semantic.Port)
}

// ListenAddr returns the bind:port address string.
func (c *Config) ListenAddr() string {
	return fmt.Sprintf("%s:%d", c.Server.Bind, c.Server.Port)
}
