// internal/config/config.go
//
// This package handles configuration and the .rater directory structure.
// Every project that runs a rating desk gets a .rater/ folder in its root
// holding config.yaml, the session journal and exported artifacts.

package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	// RaterDir is the name of the directory we create in each project
	RaterDir = ".rater"

	// LegacyConfigFile is the flat JSON config older deployments used.
	LegacyConfigFile = "config.json"

	defaultStoreFile = "data_store.json"
	defaultExportDir = ".rater/exports"
	defaultS3Region  = "us-east-1"
	defaultS3Prefix  = "ratings"

	// DefaultServerHost keeps the download endpoint on loopback.
	DefaultServerHost = "127.0.0.1"
	// DefaultServerPort is used when server.port is unset.
	DefaultServerPort = 8766
)

const defaultProjectConfigYAML = `# rating desk project configuration
version: 1

# Model identifiers. Each corpus line must carry a response field for every one.
# They are shown to raters as "Model 1..N" in a shuffled order per session.
models: []

# Raters allowed to score.
labelers: []

# Line-delimited JSON corpus, relative to the project directory.
data_path: data/corpus.jsonl

# Ratings artifact, relative to the project directory.
store_path: data_store.json

export:
  dir: .rater/exports
  # Optional S3-compatible upload of each export.
  # s3:
  #   bucket: ratings
  #   endpoint: localhost:9000
  #   region: us-east-1
  #   prefix: ratings

# Loopback download endpoint for the export.
server:
  enabled: false
  host: 127.0.0.1
  port: 8766
`

// S3Config declares an optional object storage destination for exports.
type S3Config struct {
	Bucket   string `yaml:"bucket,omitempty"`
	Endpoint string `yaml:"endpoint,omitempty"`
	Region   string `yaml:"region,omitempty"`
	Prefix   string `yaml:"prefix,omitempty"`
}

// Enabled reports whether an upload destination is configured.
func (c S3Config) Enabled() bool { return strings.TrimSpace(c.Bucket) != "" }

// ExportConfig captures where exported artifacts go.
type ExportConfig struct {
	Dir string   `yaml:"dir,omitempty"`
	S3  S3Config `yaml:"s3,omitempty"`
}

// ServerConfig captures the loopback download server preferences.
type ServerConfig struct {
	Enabled *bool  `yaml:"enabled,omitempty"`
	Host    string `yaml:"host,omitempty"`
	Port    int    `yaml:"port,omitempty"`
}

// IsEnabled reports whether the download server should start. It is off
// unless asked for.
func (c ServerConfig) IsEnabled() bool { return c.Enabled != nil && *c.Enabled }

// ProjectConfig models .rater/config.yaml.
type ProjectConfig struct {
	Version   int          `yaml:"version"`
	Models    []string     `yaml:"models"`
	Labelers  []string     `yaml:"labelers"`
	DataPath  string       `yaml:"data_path"`
	StorePath string       `yaml:"store_path,omitempty"`
	Export    ExportConfig `yaml:"export,omitempty"`
	Server    ServerConfig `yaml:"server,omitempty"`
}

type legacyConfig struct {
	ModelList   []string `yaml:"MODEL_LIST"`
	LabelerList []string `yaml:"LABELER_LIST"`
	DataPath    string   `yaml:"DATA_PATH"`
}

// Config holds the runtime configuration for one project.
type Config struct {
	// ProjectDir is the directory the desk was started from
	ProjectDir string

	// RaterProjectDir is ProjectDir/.rater
	RaterProjectDir string

	Project ProjectConfig
}

// InitRaterDir creates the .rater directory structure in the given project
// directory and seeds config.yaml.
//
// Structure created:
// .rater/
// ├── config.yaml
// ├── logs/      <- session journal
// └── exports/   <- exported artifacts
//
// When config.yaml is missing but a legacy config.json sits in the project
// root, its lists are imported instead of writing the template.
func InitRaterDir(projectDir string) error {
	raterDir := filepath.Join(projectDir, RaterDir)
	dirs := []string{
		filepath.Join(raterDir, "logs"),
		filepath.Join(raterDir, "exports"),
	}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return ensureProjectConfig(projectDir, filepath.Join(raterDir, "config.yaml"))
}

// NewConfig loads the project settings and applies environment overrides.
func NewConfig(projectDir string) (*Config, error) {
	cfg := &Config{
		ProjectDir:      projectDir,
		RaterProjectDir: filepath.Join(projectDir, RaterDir),
		Project:         defaultProjectConfig(),
	}
	if err := cfg.loadProjectConfig(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ProjectConfigPath returns the on-disk location for the project config file.
func (c *Config) ProjectConfigPath() string {
	return filepath.Join(c.RaterProjectDir, "config.yaml")
}

// LogsDir returns the path to the logs directory
func (c *Config) LogsDir() string {
	return filepath.Join(c.RaterProjectDir, "logs")
}

// JournalPath returns the session journal file.
func (c *Config) JournalPath() string {
	return filepath.Join(c.LogsDir(), "journey.log")
}

// StorePath returns the absolute path of the ratings artifact.
func (c *Config) StorePath() string {
	return c.Project.StorePath
}

// DataPath returns the absolute path of the corpus.
func (c *Config) DataPath() string {
	return c.Project.DataPath
}

// ExportDir returns where exported artifacts are written.
func (c *Config) ExportDir() string {
	return c.Project.Export.Dir
}

// Models returns the configured model identifiers.
func (c *Config) Models() []string {
	return append([]string(nil), c.Project.Models...)
}

// Labelers returns the configured rater identifiers in order.
func (c *Config) Labelers() []string {
	return append([]string(nil), c.Project.Labelers...)
}

func (c *Config) loadProjectConfig() error {
	path := c.ProjectConfigPath()
	data, err := os.ReadFile(path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("config: read %s: %w", path, err)
		}
		legacy, ok, legacyErr := readLegacyConfig(c.ProjectDir)
		if legacyErr != nil {
			return legacyErr
		}
		if !ok {
			return fmt.Errorf("config: %s not found; run from a project initialized with %s/", path, RaterDir)
		}
		c.Project = legacy
	} else {
		var parsed ProjectConfig
		if err := yaml.Unmarshal(data, &parsed); err != nil {
			return fmt.Errorf("config: parse %s: %w", path, err)
		}
		c.Project = parsed
	}

	c.Project.applyDefaults()
	if err := c.Project.applyEnv(); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	c.Project.normalize(c.ProjectDir)
	if err := c.Project.validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}

func defaultProjectConfig() ProjectConfig {
	return ProjectConfig{
		Version:   1,
		StorePath: defaultStoreFile,
		Export:    ExportConfig{Dir: defaultExportDir},
	}
}

func (pc *ProjectConfig) applyDefaults() {
	if pc.Version == 0 {
		pc.Version = 1
	}
	if strings.TrimSpace(pc.StorePath) == "" {
		pc.StorePath = defaultStoreFile
	}
	if strings.TrimSpace(pc.Export.Dir) == "" {
		pc.Export.Dir = defaultExportDir
	}
	if strings.TrimSpace(pc.Server.Host) == "" {
		pc.Server.Host = DefaultServerHost
	}
	if pc.Server.Port == 0 {
		pc.Server.Port = DefaultServerPort
	}
	if pc.Export.S3.Enabled() {
		if strings.TrimSpace(pc.Export.S3.Region) == "" {
			pc.Export.S3.Region = defaultS3Region
		}
		if strings.TrimSpace(pc.Export.S3.Prefix) == "" {
			pc.Export.S3.Prefix = defaultS3Prefix
		}
	}
}

func (pc *ProjectConfig) applyEnv() error {
	if v := strings.TrimSpace(os.Getenv("RATER_STORE_PATH")); v != "" {
		pc.StorePath = v
	}
	if v := strings.TrimSpace(os.Getenv("RATER_DATA_PATH")); v != "" {
		pc.DataPath = v
	}
	if v := strings.TrimSpace(os.Getenv("RATER_SERVER_ENABLED")); v != "" {
		enabled, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("RATER_SERVER_ENABLED: %q is not a boolean", v)
		}
		pc.Server.Enabled = &enabled
	}
	if v := strings.TrimSpace(os.Getenv("RATER_SERVER_HOST")); v != "" {
		pc.Server.Host = v
	}
	if v := strings.TrimSpace(os.Getenv("RATER_SERVER_PORT")); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("RATER_SERVER_PORT: %q is not a number", v)
		}
		pc.Server.Port = port
	}
	return nil
}

func (pc *ProjectConfig) normalize(base string) {
	pc.Models = trimAll(pc.Models)
	pc.Labelers = trimAll(pc.Labelers)
	pc.DataPath = resolvePath(base, pc.DataPath)
	pc.StorePath = resolvePath(base, pc.StorePath)
	pc.Export.Dir = resolvePath(base, pc.Export.Dir)
	pc.Export.S3.Bucket = strings.TrimSpace(pc.Export.S3.Bucket)
	pc.Export.S3.Endpoint = strings.TrimSpace(pc.Export.S3.Endpoint)
	pc.Export.S3.Prefix = strings.Trim(strings.TrimSpace(pc.Export.S3.Prefix), "/")
	pc.Server.Host = strings.TrimSpace(pc.Server.Host)
}

func (pc *ProjectConfig) validate() error {
	if pc.Version < 1 {
		return fmt.Errorf("config version must be >= 1")
	}
	if len(pc.Models) == 0 {
		return fmt.Errorf("models: at least one model is required")
	}
	if dup, ok := firstDuplicate(pc.Models); ok {
		return fmt.Errorf("models: duplicate identifier %q", dup)
	}
	if len(pc.Labelers) == 0 {
		return fmt.Errorf("labelers: at least one labeler is required")
	}
	if dup, ok := firstDuplicate(pc.Labelers); ok {
		return fmt.Errorf("labelers: duplicate identifier %q", dup)
	}
	if pc.DataPath == "" {
		return fmt.Errorf("data_path is required")
	}
	if pc.Server.Port < 1 || pc.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535, got %d", pc.Server.Port)
	}
	return nil
}

func readLegacyConfig(projectDir string) (ProjectConfig, bool, error) {
	path := filepath.Join(projectDir, LegacyConfigFile)
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return ProjectConfig{}, false, nil
		}
		return ProjectConfig{}, false, fmt.Errorf("config: read %s: %w", path, err)
	}
	// JSON is a subset of YAML, so the yaml decoder handles the legacy file.
	var legacy legacyConfig
	if err := yaml.Unmarshal(data, &legacy); err != nil {
		return ProjectConfig{}, false, fmt.Errorf("config: parse %s: %w", path, err)
	}
	pc := defaultProjectConfig()
	pc.Models = legacy.ModelList
	pc.Labelers = legacy.LabelerList
	pc.DataPath = legacy.DataPath
	return pc, true, nil
}

func ensureProjectConfig(projectDir, path string) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	} else if !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	legacy, ok, err := readLegacyConfig(projectDir)
	if err != nil {
		return err
	}
	if !ok {
		return os.WriteFile(path, []byte(defaultProjectConfigYAML), 0o644)
	}
	data, err := yaml.Marshal(legacy)
	if err != nil {
		return fmt.Errorf("config: encode imported config: %w", err)
	}
	header := []byte("# imported from " + LegacyConfigFile + "\n")
	return os.WriteFile(path, append(header, data...), 0o644)
}

func trimAll(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if trimmed := strings.TrimSpace(v); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func firstDuplicate(values []string) (string, bool) {
	seen := make(map[string]struct{}, len(values))
	for _, v := range values {
		if _, ok := seen[v]; ok {
			return v, true
		}
		seen[v] = struct{}{}
	}
	return "", false
}

func resolvePath(base, candidate string) string {
	trimmed := strings.TrimSpace(candidate)
	if trimmed == "" {
		return ""
	}
	if filepath.IsAbs(trimmed) {
		return filepath.Clean(trimmed)
	}
	return filepath.Clean(filepath.Join(base, trimmed))
}
