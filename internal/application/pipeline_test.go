package application

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"peermark/internal/domain"
	"peermark/internal/ports"
)

// fakeRasterizer hands back a uniform white page for any PDF.
type fakeRasterizer struct {
	width  int
	height int
}

func (f fakeRasterizer) RenderPage(_ context.Context, _ string, _, _ int) (image.Image, error) {
	img := image.NewRGBA(image.Rect(0, 0, f.width, f.height))
	for y := 0; y < f.height; y++ {
		for x := 0; x < f.width; x++ {
			img.SetRGBA(x, y, color.RGBA{R: 0xFF, G: 0xFF, B: 0xFF, A: 0xFF})
		}
	}
	return img, nil
}

func (f fakeRasterizer) PageCount(string) (int, error) { return 1, nil }

// fakeTranscriber serves canned transcriptions keyed by sheet ID.
type fakeTranscriber struct {
	mu      sync.Mutex
	results map[string]domain.Transcription
	failing map[string]bool
	calls   int
}

func (f *fakeTranscriber) Transcribe(_ context.Context, sheetID string, _ []byte) (domain.Transcription, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	if f.failing[sheetID] {
		return domain.Transcription{}, &domain.TranscriptionError{SheetID: sheetID, Err: fmt.Errorf("boom")}
	}
	tr, ok := f.results[sheetID]
	if !ok {
		return domain.Transcription{}, &domain.TranscriptionError{SheetID: sheetID, Err: fmt.Errorf("no fixture")}
	}
	return tr, nil
}

func (f *fakeTranscriber) Model() string { return "fake-model" }

// memoryCache is an in-memory ports.TranscriptionCache.
type memoryCache struct {
	entries map[ports.CacheKey]domain.Transcription
}

func newMemoryCache() *memoryCache {
	return &memoryCache{entries: make(map[ports.CacheKey]domain.Transcription)}
}

func (m *memoryCache) Get(_ context.Context, key ports.CacheKey) (domain.Transcription, bool, error) {
	tr, ok := m.entries[key]
	return tr, ok, nil
}

func (m *memoryCache) Put(_ context.Context, key ports.CacheKey, tr domain.Transcription) error {
	m.entries[key] = tr
	return nil
}

func (m *memoryCache) Close() error { return nil }

func writeSheet(t *testing.T, dir, name string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("%PDF-1.4 test fixture"), 0o644))
}

func testConfig(t *testing.T, inputDir string) *Config {
	t.Helper()
	cfg, err := ParseConfig([]byte(fmt.Sprintf(`
version: "1"
input:
  dir: %s
  dpi: 150
sheet:
  row_count: 3
provider:
  name: google
output:
  dir: %s
cache:
  enabled: false
`, inputDir, t.TempDir())))
	require.NoError(t, err)
	return cfg
}

func TestPipelineRun(t *testing.T) {
	inputDir := t.TempDir()
	writeSheet(t, inputDir, "judge-b.pdf")
	writeSheet(t, inputDir, "judge-a.pdf")
	require.NoError(t, os.WriteFile(filepath.Join(inputDir, "notes.txt"), []byte("skip me"), 0o644))

	transcriber := &fakeTranscriber{results: map[string]domain.Transcription{
		"judge-a": {Rows: []domain.RowScore{
			{Row: 1, Score: 7},
			{Row: 2, Score: 4},
			{Row: 3, Unreadable: true},
		}},
		"judge-b": {Rows: []domain.RowScore{
			{Row: 1, Score: 9},
			{Row: 2, Score: 6},
			{Row: 3, Score: 5},
		}},
	}}

	cfg := testConfig(t, inputDir)
	p, err := NewPipeline(cfg, Dependencies{
		Rasterizer:  fakeRasterizer{width: 1000, height: 1400},
		Transcriber: transcriber,
	})
	require.NoError(t, err)

	rep, err := p.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"judge-a", "judge-b"}, rep.Sheets, "ingested in sorted order")
	assert.Equal(t, 2, rep.Stats.SheetsIngested)
	assert.Equal(t, 1, rep.Stats.UnreadableEntries)

	require.Len(t, rep.Grades, 3)
	assert.Equal(t, domain.FinalGrade{Row: 1, Grade: 80, ScoreCount: 2}, rep.Grades[0])
	assert.Equal(t, domain.FinalGrade{Row: 2, Grade: 50, ScoreCount: 2}, rep.Grades[1])
	assert.Equal(t, domain.FinalGrade{Row: 3, Grade: 50, ScoreCount: 1}, rep.Grades[2])

	for _, name := range []string{"scores.csv", "grades.csv"} {
		_, err := os.Stat(filepath.Join(cfg.Output.Dir, name))
		assert.NoError(t, err, "%s written", name)
	}
}

func TestPipelineToleratesSheetFailures(t *testing.T) {
	inputDir := t.TempDir()
	writeSheet(t, inputDir, "good.pdf")
	writeSheet(t, inputDir, "bad.pdf")

	transcriber := &fakeTranscriber{
		results: map[string]domain.Transcription{
			"good": {Rows: []domain.RowScore{{Row: 1, Score: 8}}},
		},
		failing: map[string]bool{"bad": true},
	}

	p, err := NewPipeline(testConfig(t, inputDir), Dependencies{
		Rasterizer:  fakeRasterizer{width: 1000, height: 1400},
		Transcriber: transcriber,
	})
	require.NoError(t, err)

	rep, err := p.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, rep.Stats.SheetsIngested)
	assert.Equal(t, 1, rep.Stats.SheetsFailed)
	assert.Equal(t, []string{"bad"}, rep.Stats.FailedSheets)
}

func TestPipelineAllSheetsFailed(t *testing.T) {
	inputDir := t.TempDir()
	writeSheet(t, inputDir, "bad.pdf")

	p, err := NewPipeline(testConfig(t, inputDir), Dependencies{
		Rasterizer:  fakeRasterizer{width: 1000, height: 1400},
		Transcriber: &fakeTranscriber{failing: map[string]bool{"bad": true}},
	})
	require.NoError(t, err)

	_, err = p.Run(context.Background())
	assert.ErrorIs(t, err, domain.ErrNoSheets)
}

func TestPipelineUsesCache(t *testing.T) {
	inputDir := t.TempDir()
	writeSheet(t, inputDir, "judge-a.pdf")

	transcriber := &fakeTranscriber{results: map[string]domain.Transcription{
		"judge-a": {Rows: []domain.RowScore{{Row: 1, Score: 8}}},
	}}
	cache := newMemoryCache()

	cfg := testConfig(t, inputDir)
	deps := Dependencies{
		Rasterizer:  fakeRasterizer{width: 1000, height: 1400},
		Transcriber: transcriber,
		Cache:       cache,
	}

	p, err := NewPipeline(cfg, deps)
	require.NoError(t, err)
	_, err = p.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, transcriber.calls)

	// Second run over the same rendered pages hits the cache.
	p2, err := NewPipeline(cfg, deps)
	require.NoError(t, err)
	_, err = p2.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, transcriber.calls, "cached sheet is not re-transcribed")
}

func TestPipelineParallelRunIsDeterministic(t *testing.T) {
	inputDir := t.TempDir()
	results := make(map[string]domain.Transcription)
	for i := 0; i < 8; i++ {
		name := fmt.Sprintf("judge-%02d", i)
		writeSheet(t, inputDir, name+".pdf")
		results[name] = domain.Transcription{Rows: []domain.RowScore{{Row: 1, Score: 1 + i%10}}}
	}

	run := func(parallelism int) []domain.FinalGrade {
		cfg := testConfig(t, inputDir)
		cfg.Parallelism = parallelism
		p, err := NewPipeline(cfg, Dependencies{
			Rasterizer:  fakeRasterizer{width: 1000, height: 1400},
			Transcriber: &fakeTranscriber{results: results},
		})
		require.NoError(t, err)
		rep, err := p.Run(context.Background())
		require.NoError(t, err)
		return rep.Grades
	}

	assert.Equal(t, run(1), run(4))
}

func TestRunMask(t *testing.T) {
	inputDir := t.TempDir()
	writeSheet(t, inputDir, "judge-a.pdf")

	cfg := testConfig(t, inputDir)
	p, err := NewPipeline(cfg, Dependencies{Rasterizer: fakeRasterizer{width: 1000, height: 1400}})
	require.NoError(t, err)

	maskDir := t.TempDir()
	require.NoError(t, p.RunMask(context.Background(), maskDir, false))
	_, err = os.Stat(filepath.Join(maskDir, "judge-a.masked.png"))
	assert.NoError(t, err)

	require.NoError(t, p.RunMask(context.Background(), maskDir, true))
	_, err = os.Stat(filepath.Join(maskDir, "judge-a.preview.png"))
	assert.NoError(t, err)
}

func TestDiscoverSheets(t *testing.T) {
	dir := t.TempDir()
	writeSheet(t, dir, "b.pdf")
	writeSheet(t, dir, "a.PDF")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "fake.pdf"), []byte("not a pdf"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "readme.md"), []byte("# hi"), 0o644))

	sheets, err := DiscoverSheets(dir, false)
	require.NoError(t, err)
	require.Len(t, sheets, 2)
	assert.Equal(t, "a", SheetID(sheets[0]))
	assert.Equal(t, "b", SheetID(sheets[1]))

	_, err = DiscoverSheets(t.TempDir(), false)
	assert.ErrorIs(t, err, domain.ErrNoSheets)
}

func TestDiscoverSheetsRecursive(t *testing.T) {
	dir := t.TempDir()
	writeSheet(t, dir, "top.pdf")
	sub := filepath.Join(dir, "batch-2")
	require.NoError(t, os.Mkdir(sub, 0o755))
	writeSheet(t, sub, "nested.pdf")

	sheets, err := DiscoverSheets(dir, false)
	require.NoError(t, err)
	assert.Len(t, sheets, 1, "non-recursive scan ignores subdirectories")

	sheets, err = DiscoverSheets(dir, true)
	require.NoError(t, err)
	assert.Len(t, sheets, 2)
}
