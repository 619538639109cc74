package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// FoldersConfig names the folders organize creates under the project root.
type FoldersConfig struct {
	// Linked receives every file a scene references
	Linked string `yaml:"linked"`

	// Unused receives files no scene references
	Unused string `yaml:"unused"`
}

// OrganizeConfig toggles the organize steps.
type OrganizeConfig struct {
	ConsolidateLinked bool `yaml:"consolidate_linked"`
	RelocateUnused    bool `yaml:"relocate_unused"`
	CopyInsteadOfMove bool `yaml:"copy_instead_of_move"`
	DeleteDuplicates  bool `yaml:"delete_duplicates"`

	// FullHash compares whole files instead of their first and last kilobyte
	FullHash bool `yaml:"full_hash"`

	CheckIntegrity bool `yaml:"check_integrity"`
	PruneEmpty     bool `yaml:"prune_empty"`
}

// BackupConfig controls snapshots taken before destructive operations.
type BackupConfig struct {
	Enabled bool `yaml:"enabled"`

	// Dir is the backup root; empty means $TMPDIR/assetkeeper-backups
	Dir string `yaml:"dir"`

	// RetentionDays purges older runs before each organize (0 = keep forever)
	RetentionDays int `yaml:"retention_days"`
}

// HistoryConfig locates the operation log.
type HistoryConfig struct {
	// Path is the JSON log file; empty means <home>/history.json
	Path string `yaml:"path"`
}

// ScanConfig controls document discovery and the scan cache.
type ScanConfig struct {
	// Recursive descends into subfolders when the target is a folder
	Recursive bool `yaml:"recursive"`

	Cache bool `yaml:"cache"`

	// CachePath is the SQLite cache; empty means <home>/scancache.db
	CachePath string `yaml:"cache_path"`

	DocumentExtensions []string `yaml:"document_extensions"`
}

// Config represents assetkeeper configuration options
type Config struct {
	// LogLevel sets the logging verbosity (trace, debug, info, warn, error)
	LogLevel string `yaml:"log_level"`

	// LogDir is the directory where run logs are written; empty means <home>/logs
	LogDir string `yaml:"log_dir"`

	Folders  FoldersConfig  `yaml:"folders"`
	Organize OrganizeConfig `yaml:"organize"`
	Backup   BackupConfig   `yaml:"backup"`
	History  HistoryConfig  `yaml:"history"`
	Scan     ScanConfig     `yaml:"scan"`
}

// DefaultConfig returns a Config with sensible default values
func DefaultConfig() *Config {
	return &Config{
		LogLevel: "info",
		Folders: FoldersConfig{
			Linked: "maps",
			Unused: "unused",
		},
		Organize: OrganizeConfig{
			ConsolidateLinked: true,
			RelocateUnused:    true,
			CopyInsteadOfMove: false,
			DeleteDuplicates:  true,
			FullHash:          false,
			CheckIntegrity:    true,
			PruneEmpty:        true,
		},
		Backup: BackupConfig{
			Enabled:       true,
			RetentionDays: 7,
		},
		Scan: ScanConfig{
			Recursive:          false,
			Cache:              true,
			DocumentExtensions: []string{".max"},
		},
	}
}

// LoadConfig loads configuration from the specified file path.
// A missing file yields the defaults. Keys present in the file override
// the defaults, including explicit false and zero values.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Decoding into the populated defaults leaves absent keys untouched.
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	// A null document_extensions falls back to the defaults.
	var rawMap map[string]interface{}
	if err := yaml.Unmarshal(data, &rawMap); err == nil {
		if scan, ok := rawMap["scan"].(map[string]interface{}); ok {
			if exts, exists := scan["document_extensions"]; exists && exts == nil {
				cfg.Scan.DocumentExtensions = DefaultConfig().Scan.DocumentExtensions
			}
		}
	}

	cfg.Scan.DocumentExtensions = normalizeExtensions(cfg.Scan.DocumentExtensions)
	return cfg, nil
}

// ConfigPath returns the project config file location.
func ConfigPath(projectDir string) string {
	return filepath.Join(projectDir, ".assetkeeper", "config.yaml")
}

// LoadConfigFromDir loads .assetkeeper/config.yaml in the specified directory
// If the directory or file doesn't exist, returns default configuration without error
func LoadConfigFromDir(dir string) (*Config, error) {
	return LoadConfig(ConfigPath(dir))
}

// ApplyEnv applies ASSETKEEPER_LOG_LEVEL when set.
func (c *Config) ApplyEnv() {
	if level := strings.TrimSpace(os.Getenv(EnvLogLevel)); level != "" {
		c.LogLevel = strings.ToLower(level)
	}
}

// Flags carries CLI overrides. Nil fields are left alone.
type Flags struct {
	LogLevel          *string
	LogDir            *string
	LinkedFolder      *string
	UnusedFolder      *string
	CopyInsteadOfMove *bool
	DeleteDuplicates  *bool
	FullHash          *bool
	NoBackup          *bool
	BackupDir         *string
	Recursive         *bool
	NoCache           *bool
}

// MergeWithFlags merges CLI flags into the configuration
// Non-nil flag values override configuration values
func (c *Config) MergeWithFlags(f Flags) {
	if f.LogLevel != nil {
		c.LogLevel = *f.LogLevel
	}
	if f.LogDir != nil {
		c.LogDir = *f.LogDir
	}
	if f.LinkedFolder != nil {
		c.Folders.Linked = *f.LinkedFolder
	}
	if f.UnusedFolder != nil {
		c.Folders.Unused = *f.UnusedFolder
	}
	if f.CopyInsteadOfMove != nil {
		c.Organize.CopyInsteadOfMove = *f.CopyInsteadOfMove
	}
	if f.DeleteDuplicates != nil {
		c.Organize.DeleteDuplicates = *f.DeleteDuplicates
	}
	if f.FullHash != nil {
		c.Organize.FullHash = *f.FullHash
	}
	if f.NoBackup != nil {
		c.Backup.Enabled = !*f.NoBackup
	}
	if f.BackupDir != nil {
		c.Backup.Dir = *f.BackupDir
	}
	if f.Recursive != nil {
		c.Scan.Recursive = *f.Recursive
	}
	if f.NoCache != nil {
		c.Scan.Cache = !*f.NoCache
	}
}

// Validate validates the configuration values
// Returns an error if any values are invalid
func (c *Config) Validate() error {
	validLevels := map[string]bool{
		"trace": true,
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLevels[c.LogLevel] {
		return fmt.Errorf("invalid log_level %q, must be one of: trace, debug, info, warn, error", c.LogLevel)
	}

	if err := validateFolderName("folders.linked", c.Folders.Linked); err != nil {
		return err
	}
	if err := validateFolderName("folders.unused", c.Folders.Unused); err != nil {
		return err
	}
	if strings.EqualFold(c.Folders.Linked, c.Folders.Unused) {
		return fmt.Errorf("folders.linked and folders.unused must differ, both are %q", c.Folders.Linked)
	}

	if c.Backup.RetentionDays < 0 {
		return fmt.Errorf("backup.retention_days must be >= 0, got %d", c.Backup.RetentionDays)
	}

	if len(c.Scan.DocumentExtensions) == 0 {
		return fmt.Errorf("scan.document_extensions cannot be empty")
	}
	for _, ext := range c.Scan.DocumentExtensions {
		if len(ext) < 2 || !strings.HasPrefix(ext, ".") || strings.ContainsAny(ext, `/\`) {
			return fmt.Errorf("invalid scan.document_extensions entry %q", ext)
		}
	}
	return nil
}

func validateFolderName(key, name string) error {
	switch {
	case strings.TrimSpace(name) == "":
		return fmt.Errorf("%s cannot be empty", key)
	case name == "." || name == "..":
		return fmt.Errorf("%s cannot be %q", key, name)
	case strings.ContainsAny(name, `/\`):
		return fmt.Errorf("%s must be a single folder name, got %q", key, name)
	}
	return nil
}

// normalizeExtensions lowercases extensions and adds the leading dot.
func normalizeExtensions(exts []string) []string {
	out := make([]string, 0, len(exts))
	for _, ext := range exts {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext == "" {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		out = append(out, ext)
	}
	return out
}

// LogDirectory returns LogDir, or <home>/logs when unset.
func (c *Config) LogDirectory(home string) string {
	if c.LogDir != "" {
		return c.LogDir
	}
	return filepath.Join(home, "logs")
}

// HistoryPath returns History.Path, or <home>/history.json when unset.
func (c *Config) HistoryPath(home string) string {
	if c.History.Path != "" {
		return c.History.Path
	}
	return filepath.Join(home, "history.json")
}

// CachePath returns Scan.CachePath, or <home>/scancache.db when unset.
func (c *Config) CachePath(home string) string {
	if c.Scan.CachePath != "" {
		return c.Scan.CachePath
	}
	return filepath.Join(home, "scancache.db")
}
