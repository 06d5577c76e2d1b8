// =============================================================================
// Constituent Import - Configuration Module
// =============================================================================
//
// This module loads the run configuration. Values are layered, lowest
// precedence first:
//   1. Built-in defaults
//   2. The YAML config file (optional, a missing file is not an error)
//   3. .env / .env.local files
//   4. CONSTITUENT_IMPORT_* process environment variables
//
// Command-line flags are applied on top by the cmd package.
//
// =============================================================================

package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "CONSTITUENT_IMPORT_"

// Default values.
const (
	DefaultConfigFile             = "config.yaml"
	DefaultConstituentsFile       = "InputConstituents.csv"
	DefaultEmailsFile             = "InputEmails.csv"
	DefaultDonationsFile          = "InputDonationHistory.csv"
	DefaultOutputDir              = "./output"
	DefaultConstituentsOutputFile = "FinalOutputFormatCueBoxConstituents.csv"
	DefaultTagsOutputFile         = "FinalOutputFormatCueBoxTags.csv"
	DefaultTagAPIURL              = "https://6719768f7fc4c5ff8f4d84f1.mockapi.io/api/v1/tags"
	DefaultTagAPITimeout          = 10 * time.Second
	DefaultLogLevel               = "info"
	DefaultLogFormat              = "console"
	DefaultSummaryLogFile         = "import_summary.log"
)

// DefaultEnvFiles are read in order; later files override earlier ones.
var DefaultEnvFiles = []string{".env", ".env.local"}

// =============================================================================
// CONFIGURATION STRUCTURE
// =============================================================================

// Config holds the settings for one import run.
type Config struct {
	// =========================================================================
	// INPUT TABLES
	// =========================================================================

	// ConstituentsFile is the primary constituents table (.csv or .xlsx).
	ConstituentsFile string `yaml:"constituents_file"`

	// EmailsFile is the secondary email table.
	EmailsFile string `yaml:"emails_file"`

	// DonationsFile is the donation history table.
	DonationsFile string `yaml:"donations_file"`

	// =========================================================================
	// OUTPUT TABLES
	// =========================================================================

	// OutputDir receives both output tables.
	// Default: "./output"
	OutputDir string `yaml:"output_dir"`

	ConstituentsOutputFile string `yaml:"constituents_output_file"`
	TagsOutputFile         string `yaml:"tags_output_file"`

	// =========================================================================
	// TAG LOOKUP
	// =========================================================================

	// TagAPIURL is the tag mapping endpoint.
	TagAPIURL string `yaml:"tag_api_url"`

	// TagAPITimeout bounds the single lookup request, e.g. "10s".
	TagAPITimeout time.Duration `yaml:"tag_api_timeout"`

	// =========================================================================
	// LOGGING AND DIAGNOSTICS
	// =========================================================================

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level"`

	// LogFormat is json or console.
	LogFormat string `yaml:"log_format"`

	// LogFile is a log file path; empty logs to stderr.
	LogFile string `yaml:"log_file"`

	// MetricsFile, when set, receives the run metrics in textfile format.
	MetricsFile string `yaml:"metrics_file"`

	// SummaryLog appends a one-line run summary to SummaryLogFile in OutputDir.
	SummaryLog     bool   `yaml:"summary_log"`
	SummaryLogFile string `yaml:"summary_log_file"`
}

// =============================================================================
// LOADING
// =============================================================================

// Load reads the config file at path, then applies environment overrides
// from the process environment and DefaultEnvFiles.
func Load(path string) (*Config, error) {
	env, err := ReadEnvFiles(DefaultEnvFiles...)
	if err != nil {
		return nil, err
	}
	return LoadWithEnv(path, LookupChain(os.LookupEnv, MapLookup(env)))
}

// LoadWithEnv reads the config file at path and applies overrides from lookup.
func LoadWithEnv(path string, lookup func(string) (string, bool)) (*Config, error) {
	cfg := &Config{}

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
			// Defaults apply.
		case err != nil:
			return nil, fmt.Errorf("failed to read config file: %w", err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config file: %w", err)
			}
		}
	}

	if lookup != nil {
		if err := applyEnvOverrides(cfg, lookup); err != nil {
			return nil, fmt.Errorf("invalid environment override: %w", err)
		}
	}

	ApplyDefaults(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// ApplyDefaults sets default values for any unset option.
func ApplyDefaults(cfg *Config) {
	if cfg.ConstituentsFile == "" {
		cfg.ConstituentsFile = DefaultConstituentsFile
	}
	if cfg.EmailsFile == "" {
		cfg.EmailsFile = DefaultEmailsFile
	}
	if cfg.DonationsFile == "" {
		cfg.DonationsFile = DefaultDonationsFile
	}
	if cfg.OutputDir == "" {
		cfg.OutputDir = DefaultOutputDir
	}
	if cfg.ConstituentsOutputFile == "" {
		cfg.ConstituentsOutputFile = DefaultConstituentsOutputFile
	}
	if cfg.TagsOutputFile == "" {
		cfg.TagsOutputFile = DefaultTagsOutputFile
	}
	if cfg.TagAPIURL == "" {
		cfg.TagAPIURL = DefaultTagAPIURL
	}
	if cfg.TagAPITimeout == 0 {
		cfg.TagAPITimeout = DefaultTagAPITimeout
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = DefaultLogLevel
	}
	if cfg.LogFormat == "" {
		cfg.LogFormat = DefaultLogFormat
	}
	if cfg.SummaryLogFile == "" {
		cfg.SummaryLogFile = DefaultSummaryLogFile
	}
}

// Validate checks option values that defaults cannot repair.
func (c *Config) Validate() error {
	if c.TagAPITimeout < 0 {
		return fmt.Errorf("tag_api_timeout must be positive, got %s", c.TagAPITimeout)
	}
	switch strings.ToLower(c.LogFormat) {
	case "json", "console":
	default:
		return fmt.Errorf("log_format must be json or console, got %q", c.LogFormat)
	}
	if c.ConstituentsOutputFile == c.TagsOutputFile {
		return fmt.Errorf("constituents_output_file and tags_output_file must differ")
	}
	return nil
}

// =============================================================================
// ENVIRONMENT OVERRIDES
// =============================================================================

// ReadEnvFiles reads the existing files among paths. Missing files are
// skipped; later files override earlier ones.
func ReadEnvFiles(paths ...string) (map[string]string, error) {
	merged := make(map[string]string)
	for _, path := range paths {
		if _, err := os.Stat(path); err != nil {
			continue
		}
		values, err := godotenv.Read(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read env file %s: %w", path, err)
		}
		for k, v := range values {
			merged[k] = v
		}
	}
	return merged, nil
}

// MapLookup adapts a map to an environment lookup function.
func MapLookup(values map[string]string) func(string) (string, bool) {
	return func(key string) (string, bool) {
		v, ok := values[key]
		return v, ok
	}
}

// LookupChain returns the first hit among lookups.
func LookupChain(lookups ...func(string) (string, bool)) func(string) (string, bool) {
	return func(key string) (string, bool) {
		for _, lookup := range lookups {
			if v, ok := lookup(key); ok {
				return v, true
			}
		}
		return "", false
	}
}

func applyEnvOverrides(cfg *Config, lookup func(string) (string, bool)) error {
	stringKeys := map[string]*string{
		"CONSTITUENTS_FILE":        &cfg.ConstituentsFile,
		"EMAILS_FILE":              &cfg.EmailsFile,
		"DONATIONS_FILE":           &cfg.DonationsFile,
		"OUTPUT_DIR":               &cfg.OutputDir,
		"CONSTITUENTS_OUTPUT_FILE": &cfg.ConstituentsOutputFile,
		"TAGS_OUTPUT_FILE":         &cfg.TagsOutputFile,
		"TAG_API_URL":              &cfg.TagAPIURL,
		"LOG_LEVEL":                &cfg.LogLevel,
		"LOG_FORMAT":               &cfg.LogFormat,
		"LOG_FILE":                 &cfg.LogFile,
		"METRICS_FILE":             &cfg.MetricsFile,
		"SUMMARY_LOG_FILE":         &cfg.SummaryLogFile,
	}
	for key, field := range stringKeys {
		if v, ok := lookup(EnvPrefix + key); ok && v != "" {
			*field = v
		}
	}

	if v, ok := lookup(EnvPrefix + "TAG_API_TIMEOUT"); ok && v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%sTAG_API_TIMEOUT: %w", EnvPrefix, err)
		}
		cfg.TagAPITimeout = d
	}

	if v, ok := lookup(EnvPrefix + "SUMMARY_LOG"); ok && v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%sSUMMARY_LOG: %w", EnvPrefix, err)
		}
		cfg.SummaryLog = b
	}
	return nil
}
