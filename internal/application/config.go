// Package application wires the domain, grading, masking and infrastructure
// layers into a runnable batch pipeline, driven by a YAML run configuration.
package application

import (
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"peermark/internal/domain"
	"peermark/internal/grading"
	"peermark/internal/mask"
)

// Config is the complete specification of one grading run: where the
// scanned sheets live, how they are masked and transcribed, how grades are
// computed, and where results go.
type Config struct {
	// Version pins the configuration schema for compatibility checks.
	Version string `yaml:"version" validate:"required"`

	// Input locates and renders the scanned sheets.
	Input InputConfig `yaml:"input" validate:"required"`

	// Sheet describes the printed form the scans use.
	Sheet SheetConfig `yaml:"sheet" validate:"required"`

	// Privacy controls identity masking before upload.
	Privacy PrivacyConfig `yaml:"privacy"`

	// Provider selects and tunes the transcription service.
	Provider ProviderConfig `yaml:"provider" validate:"required"`

	// Grading holds the trimmed-mean parameters.
	Grading grading.CalculatorConfig `yaml:"grading"`

	// Roster optionally names a class roster CSV to pre-seed student
	// records and reconcile transcribed names.
	Roster RosterConfig `yaml:"roster"`

	// Cache controls the between-run transcription cache.
	Cache CacheConfig `yaml:"cache"`

	// Output controls where and how results are written.
	Output OutputConfig `yaml:"output" validate:"required"`

	// Parallelism caps concurrent transcriptions. Zero or one runs the
	// sheets sequentially.
	Parallelism int `yaml:"parallelism" validate:"gte=0,lte=32"`
}

// InputConfig locates the scanned PDFs and sets rendering parameters.
type InputConfig struct {
	// Dir is the directory scanned (non-recursively) for .pdf files.
	Dir string `yaml:"dir" validate:"required"`

	// DPI is the rasterization resolution. The default of 300 matches the
	// resolution the mask layout was calibrated at.
	DPI int `yaml:"dpi" validate:"omitempty,min=72,max=600"`

	// Recursive also scans subdirectories of Dir.
	Recursive bool `yaml:"recursive"`
}

// SheetConfig describes the score sheet form.
type SheetConfig struct {
	// RowCount is the number of student rows in use on the form.
	RowCount int `yaml:"row_count" validate:"required,min=1,max=37"`

	// Layout overrides the built-in mask geometry, for forms printed from
	// a different template. Nil uses the standard two-column layout.
	Layout *mask.LayoutConfig `yaml:"layout"`
}

// PrivacyConfig controls what is blanked out before a page leaves the
// machine. Identity masking defaults to on; disabling it is an explicit
// opt-out.
type PrivacyConfig struct {
	// MaskIdentity blanks the roll-number and name columns.
	MaskIdentity *bool `yaml:"mask_identity"`

	// MaskRubric additionally blanks the rubric band at the bottom of the
	// form.
	MaskRubric bool `yaml:"mask_rubric"`

	// PreviewDir, when set, writes outlined (not blanked) preview PNGs for
	// layout calibration instead of transcribing anything.
	PreviewDir string `yaml:"preview_dir"`
}

// IdentityMasked reports the effective identity masking setting.
func (p PrivacyConfig) IdentityMasked() bool {
	return p.MaskIdentity == nil || *p.MaskIdentity
}

// ProviderConfig selects and tunes the vision provider.
type ProviderConfig struct {
	// Name picks the provider implementation.
	Name string `yaml:"name" validate:"required,oneof=google anthropic openai"`

	// Model overrides the provider's default vision model.
	Model string `yaml:"model"`

	// APIKeyEnv names the environment variable holding the API key.
	// Defaults per provider (GEMINI_API_KEY, ANTHROPIC_API_KEY,
	// OPENAI_API_KEY). Keys never appear in the config file itself.
	APIKeyEnv string `yaml:"api_key_env"`

	// BaseURL overrides the provider endpoint.
	BaseURL string `yaml:"base_url" validate:"omitempty,url"`

	// TimeoutSeconds bounds each transcription request.
	TimeoutSeconds int `yaml:"timeout_seconds" validate:"gte=0,lte=3600"`

	// MaxRetries is the number of retries after the first attempt.
	MaxRetries int `yaml:"max_retries" validate:"gte=0,lte=10"`

	// RequestsPerSecond and Burst configure the client-side rate limiter.
	RequestsPerSecond float64 `yaml:"requests_per_second" validate:"gte=0"`
	Burst             int     `yaml:"burst" validate:"gte=0"`
}

// RosterConfig points at the optional class roster.
type RosterConfig struct {
	// Path is the roster CSV (row,roll_number,name). Empty disables
	// roster seeding and name matching.
	Path string `yaml:"path"`

	// MaxDistanceRatio tunes fuzzy name matching. Zero uses the default.
	MaxDistanceRatio float64 `yaml:"max_distance_ratio" validate:"gte=0,lt=1"`
}

// CacheConfig controls the transcription cache.
type CacheConfig struct {
	// Enabled turns the cache on. Default on.
	Enabled *bool `yaml:"enabled"`

	// Path is the SQLite database file. Defaults to
	// <output.dir>/transcriptions.db.
	Path string `yaml:"path"`
}

// On reports the effective cache setting.
func (c CacheConfig) On() bool { return c.Enabled == nil || *c.Enabled }

// OutputConfig controls result files.
type OutputConfig struct {
	// Dir receives scores.csv and grades.csv.
	Dir string `yaml:"dir" validate:"required"`

	// ByteOrderMark prefixes the CSVs with a UTF-8 BOM for spreadsheet
	// applications.
	ByteOrderMark bool `yaml:"byte_order_mark"`
}

// Defaults used where the configuration is silent.
const (
	defaultDPI               = 300
	defaultTimeoutSeconds    = 120
	defaultMaxRetries        = 3
	defaultRequestsPerSecond = 1.0
	defaultBurst             = 2
)

// defaultAPIKeyEnvs maps providers to the conventional key variable.
var defaultAPIKeyEnvs = map[string]string{
	"google":    "GEMINI_API_KEY",
	"anthropic": "ANTHROPIC_API_KEY",
	"openai":    "OPENAI_API_KEY",
}

// LoadConfig reads, defaults and validates a run configuration.
func LoadConfig(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	return ParseConfig(raw)
}

// ParseConfig parses a YAML run configuration. See LoadConfig.
func ParseConfig(raw []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return nil, domain.NewConfigError("yaml", err.Error())
	}
	cfg.applyDefaults()

	if err := validator.New().Struct(&cfg); err != nil {
		return nil, domain.NewConfigError("config", err.Error())
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Input.DPI == 0 {
		c.Input.DPI = defaultDPI
	}
	if c.Provider.TimeoutSeconds == 0 {
		c.Provider.TimeoutSeconds = defaultTimeoutSeconds
	}
	if c.Provider.MaxRetries == 0 {
		c.Provider.MaxRetries = defaultMaxRetries
	}
	if c.Provider.RequestsPerSecond == 0 {
		c.Provider.RequestsPerSecond = defaultRequestsPerSecond
	}
	if c.Provider.Burst == 0 {
		c.Provider.Burst = defaultBurst
	}
	if c.Provider.APIKeyEnv == "" {
		c.Provider.APIKeyEnv = defaultAPIKeyEnvs[c.Provider.Name]
	}
	// An entirely absent grading section gets the standard parameters; a
	// present one is taken literally, so trim_fraction: 0 disables trimming.
	if c.Grading == (grading.CalculatorConfig{}) {
		c.Grading = grading.DefaultCalculatorConfig()
	}
	if c.Cache.Path == "" && c.Output.Dir != "" {
		c.Cache.Path = c.Output.Dir + "/transcriptions.db"
	}
}

// APIKey resolves the provider API key from the environment.
func (c *Config) APIKey() (string, error) {
	key := os.Getenv(c.Provider.APIKeyEnv)
	if key == "" {
		return "", domain.NewConfigError("provider.api_key_env",
			fmt.Sprintf("environment variable %s is not set", c.Provider.APIKeyEnv))
	}
	return key, nil
}
