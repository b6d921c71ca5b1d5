// =============================================================================
// TTD Writer - Configuration Module
// =============================================================================
//
// This module loads the writer parameters. The Keboola runner hands the
// component a config.json whose "parameters" object carries the options
// below; a bare YAML or JSON map of the same options is accepted as well,
// which is convenient for local runs.
//
// RECOGNIZED OPTIONS:
//   login, #password            - API credentials (required)
//   debug                       - raise log verbosity
//   base_url                    - API root, defaults from action
//   action                      - sandbox | production | verify-inputs
//   schema_version              - v1 | v2
//   input_format                - long | wide | flat
//   continue_on_error           - per-row error tolerance in clone/put flows
//   token_expiration_minutes    - requested token lifetime
//   requests_per_second         - client-side rate limit, 0 disables it
//   audit_log, metrics_file     - output locations
//   staging_dir                 - where the staging store lives for the run
//   delimiter                   - input CSV delimiter
//
// =============================================================================

package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/ginjaninja78/ttd-writer/internal/types"
)

// =============================================================================
// CONSTANTS
// =============================================================================

const (
	ActionSandbox      = "sandbox"
	ActionProduction   = "production"
	ActionVerifyInputs = "verify-inputs"
)

const (
	SandboxBaseURL    = "https://apisb.thetradedesk.com/v3/"
	ProductionBaseURL = "https://api.thetradedesk.com/v3/"
)

const (
	FormatLong = "long"
	FormatWide = "wide"
	FormatFlat = "flat"
)

const (
	SchemaV1 = "v1"
	SchemaV2 = "v2"
)

// AuditLogName is the audit log table written to out/tables by default.
const AuditLogName = "tdd_writer_log.csv"

// =============================================================================
// CONFIGURATION STRUCTURE
// =============================================================================

// Config holds the writer parameters for one run.
type Config struct {
	// =========================================================================
	// CREDENTIALS
	// =========================================================================

	Login string `yaml:"login"`

	// Password is stored encrypted by Keboola, hence the "#" prefix.
	Password string `yaml:"#password"`

	// =========================================================================
	// BEHAVIOUR
	// =========================================================================

	// Debug switches the console logger to debug level.
	Debug bool `yaml:"debug"`

	// BaseURL is the API root. Empty means "derive from Action".
	BaseURL string `yaml:"base_url"`

	// Action selects the API environment, or verify-inputs for a dry run.
	// Default: "sandbox"
	Action string `yaml:"action"`

	// SchemaVersion selects the validation schema revision.
	// Default: "v2"
	SchemaVersion string `yaml:"schema_version"`

	// InputFormat selects how the create/update tables are laid out.
	// Default: "long"
	InputFormat string `yaml:"input_format"`

	// ContinueOnError lets clone/put flows log a failed row and move on.
	// Default: false
	ContinueOnError bool `yaml:"continue_on_error"`

	// TokenExpirationMinutes is sent with every authentication request.
	// Default: 90
	TokenExpirationMinutes int `yaml:"token_expiration_minutes"`

	// RequestsPerSecond throttles outgoing calls. 0 disables throttling.
	RequestsPerSecond float64 `yaml:"requests_per_second"`

	// =========================================================================
	// OUTPUT SETTINGS
	// =========================================================================

	// AuditLog is a local path or an s3:// URI.
	// Default: "<data>/out/tables/tdd_writer_log.csv"
	AuditLog string `yaml:"audit_log"`

	// MetricsFile, when set, receives the run's counters in the prometheus
	// text format.
	MetricsFile string `yaml:"metrics_file"`

	// StagingDir holds the staging store. It is wiped at the start of a run.
	// Default: a run-scoped directory created by the file manager.
	StagingDir string `yaml:"staging_dir"`

	// CSVSettings controls how input tables are parsed.
	CSVSettings CSVSettings `yaml:",inline"`
}

// CSVSettings holds CSV parsing options.
type CSVSettings struct {
	// Delimiter is the field separator. Accepts "tab", "pipe" and
	// "semicolon" as names.
	// Default: ","
	Delimiter string `yaml:"delimiter"`
}

// keboolaFile is the envelope written by the Keboola runner.
type keboolaFile struct {
	Parameters *Config `yaml:"parameters"`
}

// =============================================================================
// LOADING FUNCTIONS
// =============================================================================

// Load reads the configuration file at configPath, applies defaults relative
// to dataDir and validates the result.
//
// RETURNS:
//   - The loaded configuration.
//   - A *types.ConfigError when the file is unreadable or an option is invalid.
func Load(configPath, dataDir string) (*Config, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, &types.ConfigError{Msg: "failed to read config file", Err: err}
	}
	return Parse(data, dataDir)
}

// Parse decodes raw configuration bytes (JSON or YAML).
func Parse(data []byte, dataDir string) (*Config, error) {
	var envelope keboolaFile
	if err := yaml.Unmarshal(data, &envelope); err != nil {
		return nil, &types.ConfigError{Msg: "failed to parse config file", Err: err}
	}

	cfg := envelope.Parameters
	if cfg == nil {
		cfg = &Config{}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, &types.ConfigError{Msg: "failed to parse config file", Err: err}
		}
	}

	ApplyDefaults(cfg, dataDir)

	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyDefaults sets default values for any unset option.
func ApplyDefaults(cfg *Config, dataDir string) {
	if cfg.Action == "" {
		cfg.Action = ActionSandbox
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL(cfg.Action)
	}
	if cfg.SchemaVersion == "" {
		cfg.SchemaVersion = SchemaV2
	}
	if cfg.InputFormat == "" {
		cfg.InputFormat = FormatLong
	}
	if cfg.TokenExpirationMinutes == 0 {
		cfg.TokenExpirationMinutes = 90
	}
	if cfg.AuditLog == "" {
		cfg.AuditLog = filepath.Join(dataDir, "out", "tables", AuditLogName)
	}
	if cfg.CSVSettings.Delimiter == "" {
		cfg.CSVSettings.Delimiter = ","
	}
}

// DefaultBaseURL returns the API root used when base_url is not set.
func DefaultBaseURL(action string) string {
	if action == ActionProduction {
		return ProductionBaseURL
	}
	return SandboxBaseURL
}

// Validate checks required options and enumerations.
func Validate(cfg *Config) error {
	if strings.TrimSpace(cfg.Login) == "" {
		return types.NewConfigError("option 'login' is required")
	}
	if cfg.Password == "" {
		return types.NewConfigError("option '#password' is required")
	}

	switch cfg.Action {
	case ActionSandbox, ActionProduction, ActionVerifyInputs:
	default:
		return types.NewConfigError("option 'action' must be one of %s, %s, %s; got %q",
			ActionSandbox, ActionProduction, ActionVerifyInputs, cfg.Action)
	}

	switch cfg.SchemaVersion {
	case SchemaV1, SchemaV2:
	default:
		return types.NewConfigError("option 'schema_version' must be %s or %s; got %q",
			SchemaV1, SchemaV2, cfg.SchemaVersion)
	}

	switch cfg.InputFormat {
	case FormatLong, FormatWide, FormatFlat:
	default:
		return types.NewConfigError("option 'input_format' must be one of %s, %s, %s; got %q",
			FormatLong, FormatWide, FormatFlat, cfg.InputFormat)
	}

	if !strings.HasPrefix(cfg.BaseURL, "http://") && !strings.HasPrefix(cfg.BaseURL, "https://") {
		return types.NewConfigError("option 'base_url' must be an http(s) URL; got %q", cfg.BaseURL)
	}
	if cfg.TokenExpirationMinutes < 0 {
		return types.NewConfigError("option 'token_expiration_minutes' must be positive")
	}
	if cfg.RequestsPerSecond < 0 {
		return types.NewConfigError("option 'requests_per_second' must not be negative")
	}

	return nil
}

// String hides the password so the config can be logged.
func (c Config) String() string {
	return fmt.Sprintf("login=%s action=%s base_url=%s schema=%s format=%s debug=%t",
		c.Login, c.Action, c.BaseURL, c.SchemaVersion, c.InputFormat, c.Debug)
}
