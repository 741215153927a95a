package application

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"peermark/internal/domain"
	"peermark/internal/grading"
)

const minimalConfig = `
version: "1"
input:
  dir: ./scans
sheet:
  row_count: 37
provider:
  name: google
output:
  dir: ./results
`

func TestParseConfigDefaults(t *testing.T) {
	cfg, err := ParseConfig([]byte(minimalConfig))
	require.NoError(t, err)

	assert.Equal(t, 300, cfg.Input.DPI)
	assert.Equal(t, 120, cfg.Provider.TimeoutSeconds)
	assert.Equal(t, 3, cfg.Provider.MaxRetries)
	assert.Equal(t, 1.0, cfg.Provider.RequestsPerSecond)
	assert.Equal(t, 2, cfg.Provider.Burst)
	assert.Equal(t, "GEMINI_API_KEY", cfg.Provider.APIKeyEnv)
	assert.Equal(t, grading.DefaultCalculatorConfig(), cfg.Grading)
	assert.True(t, cfg.Privacy.IdentityMasked())
	assert.True(t, cfg.Cache.On())
	assert.Equal(t, "./results/transcriptions.db", cfg.Cache.Path)
}

func TestParseConfigExplicitGrading(t *testing.T) {
	cfg, err := ParseConfig([]byte(minimalConfig + `
grading:
  trim_fraction: 0
  rounding: half_even
`))
	require.NoError(t, err)
	assert.Equal(t, 0.0, cfg.Grading.TrimFraction, "explicit zero trim is kept")
	assert.Equal(t, grading.RoundHalfEven, cfg.Grading.Rounding)
}

func TestParseConfigErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{name: "not yaml", input: "{{"},
		{name: "missing input dir", input: `
version: "1"
sheet: {row_count: 37}
provider: {name: google}
output: {dir: ./out}
`},
		{name: "unknown provider", input: `
version: "1"
input: {dir: ./scans}
sheet: {row_count: 37}
provider: {name: tesseract}
output: {dir: ./out}
`},
		{name: "row count too large", input: `
version: "1"
input: {dir: ./scans}
sheet: {row_count: 40}
provider: {name: google}
output: {dir: ./out}
`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseConfig([]byte(tt.input))
			assert.ErrorIs(t, err, domain.ErrInvalidConfiguration)
		})
	}
}

func TestConfigAPIKey(t *testing.T) {
	cfg, err := ParseConfig([]byte(minimalConfig))
	require.NoError(t, err)

	t.Setenv("GEMINI_API_KEY", "")
	_, err = cfg.APIKey()
	assert.ErrorIs(t, err, domain.ErrInvalidConfiguration)

	t.Setenv("GEMINI_API_KEY", "secret")
	key, err := cfg.APIKey()
	require.NoError(t, err)
	assert.Equal(t, "secret", key)
}

func TestParseConfigLayoutOverride(t *testing.T) {
	const withLayout = `
version: "1"
input:
  dir: ./scans
sheet:
  row_count: 18
  layout:
    blocks:
      - {left: 0.1, top: 0.1, right: %v, bottom: 0.6, start_row: 1, end_row: 18, roll_split: 0.5}
    rubric: {left: 0.1, top: 0.7, right: 0.9, bottom: 0.95}
provider:
  name: google
output:
  dir: ./results
`
	cfg, err := ParseConfig([]byte(fmt.Sprintf(withLayout, 0.4)))
	require.NoError(t, err)
	require.NotNil(t, cfg.Sheet.Layout)
	require.Len(t, cfg.Sheet.Layout.Blocks, 1)

	_, err = ParseConfig([]byte(fmt.Sprintf(withLayout, 1.4)))
	assert.ErrorIs(t, err, domain.ErrInvalidConfiguration)
}

func TestPrivacyOptOut(t *testing.T) {
	cfg, err := ParseConfig([]byte(minimalConfig + `
privacy:
  mask_identity: false
`))
	require.NoError(t, err)
	assert.False(t, cfg.Privacy.IdentityMasked())
}
