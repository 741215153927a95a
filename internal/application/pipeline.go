package application

import (
	"context"
	"fmt"
	"image"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"peermark/infrastructure/raster"
	"peermark/infrastructure/sheetcache"
	"peermark/internal/domain"
	"peermark/internal/grading"
	"peermark/internal/mask"
	"peermark/internal/ports"
	"peermark/internal/report"
	"peermark/internal/roster"
)

// Dependencies carries the infrastructure the pipeline runs on. Cache and
// Metrics are optional; Logger falls back to slog.Default.
type Dependencies struct {
	Rasterizer  ports.Rasterizer
	Transcriber ports.Transcriber
	Cache       ports.TranscriptionCache
	Metrics     ports.MetricsCollector
	Logger      *slog.Logger
}

// Pipeline executes one grading run: discover sheets, render, mask,
// transcribe, aggregate, grade, report.
type Pipeline struct {
	cfg    *Config
	deps   Dependencies
	layout mask.Layout
	log    *slog.Logger
}

// NewPipeline validates the wiring and returns a ready pipeline.
func NewPipeline(cfg *Config, deps Dependencies) (*Pipeline, error) {
	if cfg == nil {
		return nil, domain.NewConfigError("pipeline", "configuration is required")
	}
	if deps.Rasterizer == nil {
		return nil, domain.NewConfigError("pipeline", "rasterizer is required")
	}
	log := deps.Logger
	if log == nil {
		log = slog.Default()
	}

	layout := mask.DefaultLayout()
	if cfg.Sheet.Layout != nil {
		var err error
		if layout, err = mask.FromConfig(*cfg.Sheet.Layout); err != nil {
			return nil, err
		}
	}
	return &Pipeline{
		cfg:    cfg,
		deps:   deps,
		layout: layout,
		log:    log,
	}, nil
}

// sheetResult is the outcome of processing one sheet, collected across
// workers and reduced single-threaded.
type sheetResult struct {
	sheetID string
	tr      domain.Transcription
	cached  bool
	err     error
}

// Run executes the full pipeline and returns the rendered report. Per-sheet
// failures are tolerated and surfaced in the run stats; only configuration
// problems and an empty input directory are fatal.
func (p *Pipeline) Run(ctx context.Context) (*report.Report, error) {
	if p.deps.Transcriber == nil {
		return nil, domain.NewConfigError("pipeline", "transcriber is required")
	}

	runID := uuid.NewString()
	log := p.log.With("run_id", runID)
	start := time.Now()

	sheets, err := DiscoverSheets(p.cfg.Input.Dir, p.cfg.Input.Recursive)
	if err != nil {
		return nil, err
	}
	log.Info("starting grading run",
		"sheets", len(sheets),
		"provider", p.cfg.Provider.Name,
		"model", p.deps.Transcriber.Model(),
		"masked", p.cfg.Privacy.IdentityMasked())

	agg := grading.NewAggregator()
	var matcher *roster.Matcher
	if p.cfg.Roster.Path != "" {
		students, err := roster.Load(p.cfg.Roster.Path)
		if err != nil {
			return nil, err
		}
		if err := agg.SeedRoster(students); err != nil {
			return nil, err
		}
		matcher = roster.NewMatcher(students, p.cfg.Roster.MaxDistanceRatio)
		log.Info("roster loaded", "students", len(students))
	}

	results, err := p.transcribeAll(ctx, log, sheets)
	if err != nil {
		return nil, err
	}

	// Reduce in sheet-ID order so logs and ingestion are deterministic.
	sort.Slice(results, func(i, j int) bool { return results[i].sheetID < results[j].sheetID })
	for _, res := range results {
		if res.err != nil {
			log.Warn("sheet failed, excluding from run", "sheet", res.sheetID, "error", res.err)
			agg.RecordSheetFailure(res.sheetID)
			p.countSheet("failed")
			continue
		}
		if err := agg.Ingest(res.sheetID, res.tr); err != nil {
			return nil, err
		}
		outcome := "transcribed"
		if res.cached {
			outcome = "cached"
		}
		p.countSheet(outcome)
		log.Debug("sheet ingested", "sheet", res.sheetID, "rows", len(res.tr.Rows), "cached", res.cached)
	}

	p.reconcileNames(log, matcher, agg)

	stats := agg.Stats()
	if stats.SheetsIngested == 0 {
		return nil, fmt.Errorf("%w: all %d sheets failed transcription", domain.ErrNoSheets, len(sheets))
	}

	calc, err := grading.NewCalculator(p.cfg.Grading)
	if err != nil {
		return nil, err
	}
	grades, err := calc.FinalizeAll(agg.Snapshot())
	if err != nil {
		return nil, err
	}

	rep := &report.Report{
		RunID:   runID,
		Sheets:  agg.Sheets(),
		Records: agg.Records(),
		Grades:  grades,
		Stats:   stats,
	}
	if err := p.writeOutputs(rep); err != nil {
		return nil, err
	}

	if p.deps.Metrics != nil {
		p.deps.Metrics.RecordLatency("run", time.Since(start), nil)
		p.deps.Metrics.RecordGauge("students_graded", float64(len(grades)), nil)
		p.deps.Metrics.RecordGauge("students_full_coverage", float64(stats.StudentsFullCoverage), nil)
	}
	log.Info("run complete",
		"ingested", stats.SheetsIngested,
		"failed", stats.SheetsFailed,
		"unreadable", stats.UnreadableEntries,
		"malformed", stats.MalformedEntries,
		"graded", len(grades),
		"took", time.Since(start))
	return rep, nil
}

// reconcileNames cross-checks transcribed names against the roster. Only
// meaningful in full (non-masked) mode where identity columns were read; a
// name landing on a different roster row usually means the model misread
// the row numbering.
func (p *Pipeline) reconcileNames(log *slog.Logger, matcher *roster.Matcher, agg *grading.Aggregator) {
	if matcher == nil || p.cfg.Privacy.IdentityMasked() {
		return
	}
	for _, rec := range agg.Records() {
		if rec.Name == "" {
			continue
		}
		matched, ok := matcher.Match(rec.Name)
		switch {
		case !ok:
			log.Warn("transcribed name not on roster", "row", rec.Row, "name", rec.Name)
		case matched.Row != rec.Row:
			log.Warn("transcribed name matches a different roster row",
				"row", rec.Row, "name", rec.Name, "roster_row", matched.Row, "roster_name", matched.Name)
		}
	}
}

func (p *Pipeline) transcribeAll(ctx context.Context, log *slog.Logger, sheets []string) ([]sheetResult, error) {
	results := make([]sheetResult, len(sheets))

	limit := p.cfg.Parallelism
	if limit < 1 {
		limit = 1
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)

	for i, path := range sheets {
		g.Go(func() error {
			sheetID := SheetID(path)
			tr, cached, err := p.processSheet(gctx, log, sheetID, path)
			results[i] = sheetResult{sheetID: sheetID, tr: tr, cached: cached, err: err}
			// Per-sheet errors are tolerated; only cancellation aborts.
			return gctx.Err()
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// processSheet renders, masks and transcribes one PDF, consulting the cache
// on either side of the service call.
func (p *Pipeline) processSheet(ctx context.Context, log *slog.Logger, sheetID, path string) (domain.Transcription, bool, error) {
	// Score sheet forms are single-page; later pages are ignored.
	if pages, err := p.deps.Rasterizer.PageCount(path); err == nil && pages > 1 {
		log.Debug("sheet has extra pages, reading only the first", "sheet", sheetID, "pages", pages)
	}

	img, err := p.renderMasked(ctx, path)
	if err != nil {
		return domain.Transcription{}, false, err
	}
	png, err := raster.EncodePNG(img)
	if err != nil {
		return domain.Transcription{}, false, err
	}

	key := ports.CacheKey{
		SheetDigest: sheetcache.Digest(png),
		Model:       p.deps.Transcriber.Model(),
		Masked:      p.cfg.Privacy.IdentityMasked(),
	}
	if p.deps.Cache != nil {
		if tr, ok, err := p.deps.Cache.Get(ctx, key); err != nil {
			log.Warn("cache read failed", "sheet", sheetID, "error", err)
		} else if ok {
			tr.SheetID = sheetID
			return tr, true, nil
		}
	}

	tr, err := p.deps.Transcriber.Transcribe(ctx, sheetID, png)
	if err != nil {
		return domain.Transcription{}, false, err
	}

	if p.deps.Cache != nil {
		if err := p.deps.Cache.Put(ctx, key, tr); err != nil {
			log.Warn("cache write failed", "sheet", sheetID, "error", err)
		}
	}
	return tr, false, nil
}

// renderMasked renders the first page and applies the configured masking.
func (p *Pipeline) renderMasked(ctx context.Context, path string) (image.Image, error) {
	img, err := p.deps.Rasterizer.RenderPage(ctx, path, 0, p.cfg.Input.DPI)
	if err != nil {
		return nil, err
	}

	regions, err := p.maskRegions(img)
	if err != nil {
		return nil, err
	}
	if len(regions) == 0 {
		return img, nil
	}
	return mask.Apply(img, regions), nil
}

func (p *Pipeline) maskRegions(img image.Image) ([]mask.Region, error) {
	bounds := img.Bounds()
	var regions []mask.Region

	if p.cfg.Privacy.IdentityMasked() {
		identity, err := p.layout.RegionsFor(bounds.Dx(), bounds.Dy(), p.cfg.Sheet.RowCount)
		if err != nil {
			return nil, err
		}
		regions = identity
	}
	if p.cfg.Privacy.MaskRubric {
		regions = append(regions, p.layout.RubricRegion(bounds.Dx(), bounds.Dy()))
	}
	return regions, nil
}

// RunMask writes masked page PNGs for every sheet without transcribing
// anything. With outline set, regions are traced instead of blanked so the
// layout can be checked against real scans before any page is uploaded.
func (p *Pipeline) RunMask(ctx context.Context, dir string, outline bool) error {
	sheets, err := DiscoverSheets(p.cfg.Input.Dir, p.cfg.Input.Recursive)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating mask output directory: %w", err)
	}

	suffix := ".masked.png"
	if outline {
		suffix = ".preview.png"
	}
	for _, path := range sheets {
		if err := ctx.Err(); err != nil {
			return err
		}
		img, err := p.deps.Rasterizer.RenderPage(ctx, path, 0, p.cfg.Input.DPI)
		if err != nil {
			return err
		}
		regions, err := p.maskRegions(img)
		if err != nil {
			return err
		}

		var out image.Image
		if outline {
			out = mask.Outline(img, regions, 4)
		} else {
			out = mask.Apply(img, regions)
		}
		png, err := raster.EncodePNG(out)
		if err != nil {
			return err
		}
		file := filepath.Join(dir, SheetID(path)+suffix)
		if err := os.WriteFile(file, png, 0o644); err != nil {
			return fmt.Errorf("writing masked page: %w", err)
		}
		p.log.Info("masked page written", "sheet", SheetID(path), "file", file, "regions", len(regions))
	}
	return nil
}

func (p *Pipeline) writeOutputs(rep *report.Report) error {
	if err := os.MkdirAll(p.cfg.Output.Dir, 0o755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}

	scores, err := os.Create(filepath.Join(p.cfg.Output.Dir, "scores.csv"))
	if err != nil {
		return fmt.Errorf("creating scores.csv: %w", err)
	}
	defer scores.Close()
	if err := rep.WriteScoresCSV(scores, p.cfg.Output.ByteOrderMark); err != nil {
		return err
	}

	grades, err := os.Create(filepath.Join(p.cfg.Output.Dir, "grades.csv"))
	if err != nil {
		return fmt.Errorf("creating grades.csv: %w", err)
	}
	defer grades.Close()
	return rep.WriteGradesCSV(grades, p.cfg.Output.ByteOrderMark)
}

func (p *Pipeline) countSheet(outcome string) {
	if p.deps.Metrics != nil {
		p.deps.Metrics.RecordCounter("sheets_processed_total", 1, map[string]string{"outcome": outcome})
	}
}

// DiscoverSheets lists the PDF sheets in dir, sorted by name. Files without
// a %PDF header are skipped. With recursive set, subdirectories are scanned
// too. Returns domain.ErrNoSheets when nothing usable is found.
func DiscoverSheets(dir string, recursive bool) ([]string, error) {
	var candidates []string
	if recursive {
		err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if !d.IsDir() && strings.EqualFold(filepath.Ext(d.Name()), ".pdf") {
				candidates = append(candidates, path)
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("scanning input directory: %w", err)
		}
	} else {
		entries, err := os.ReadDir(dir)
		if err != nil {
			return nil, fmt.Errorf("reading input directory: %w", err)
		}
		for _, entry := range entries {
			if entry.IsDir() || !strings.EqualFold(filepath.Ext(entry.Name()), ".pdf") {
				continue
			}
			candidates = append(candidates, filepath.Join(dir, entry.Name()))
		}
	}

	var sheets []string
	for _, path := range candidates {
		ok, err := hasPDFHeader(path)
		if err != nil {
			return nil, err
		}
		if ok {
			sheets = append(sheets, path)
		}
	}
	if len(sheets) == 0 {
		return nil, fmt.Errorf("%w in %s", domain.ErrNoSheets, dir)
	}
	sort.Strings(sheets)
	return sheets, nil
}

// SheetID derives the per-sheet identifier from the PDF path: the file name
// without its extension.
func SheetID(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

func hasPDFHeader(path string) (bool, error) {
	f, err := os.Open(path)
	if err != nil {
		return false, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	header := make([]byte, 5)
	n, _ := f.Read(header)
	return n == 5 && string(header) == "%PDF-", nil
}
