// Package pipeline orchestrates a harvest run: fetch the index page,
// classify and collect question links, then sequentially fetch, extract,
// and archive each question. There is no concurrency: one outstanding
// request at a time, with a politeness delay between question fetches.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/gretools/greharvest/internal/archive"
	"github.com/gretools/greharvest/internal/config"
	"github.com/gretools/greharvest/internal/extract"
	"github.com/gretools/greharvest/internal/fetcher"
	"github.com/gretools/greharvest/internal/harvest"
	"github.com/gretools/greharvest/internal/storage"
	"github.com/gretools/greharvest/internal/taxonomy"
	"github.com/gretools/greharvest/internal/types"
)

// Summary reports what a run accomplished.
type Summary struct {
	LinksFound int
	Extracted  int
	Failed     int
	Skipped    int
	Categories int
	Elapsed    time.Duration
}

// Runner wires the harvest pipeline together.
type Runner struct {
	cfg       *config.Config
	fetch     fetcher.Fetcher
	harvester *harvest.Harvester
	extractor *extract.Extractor
	archiver  *archive.Archiver
	mirror    storage.Storage
	chain     *Chain
	logger    *slog.Logger
}

// NewRunner creates a Runner. The mirror may be nil when no secondary
// backend is configured.
func NewRunner(cfg *config.Config, f fetcher.Fetcher, mirror storage.Storage, logger *slog.Logger) *Runner {
	chain := NewChain(logger)
	chain.Use(&TrimMiddleware{})
	chain.Use(&RequiredQuestionMiddleware{})
	chain.Use(NewDedupMiddleware())

	return &Runner{
		cfg:       cfg,
		fetch:     f,
		harvester: harvest.New(cfg, logger),
		extractor: extract.New(cfg, logger),
		archiver:  archive.New(cfg.Archive.OutputDir, cfg.Archive.MaxFilenameLength, logger),
		mirror:    mirror,
		chain:     chain,
		logger:    logger.With("component", "pipeline"),
	}
}

// HarvestLinks fetches the index page and returns the link buckets
// without extracting anything (dry-run mode).
func (r *Runner) HarvestLinks(ctx context.Context, indexURL string) ([]*harvest.Bucket, error) {
	resp, err := r.fetchPage(ctx, indexURL, "index")
	if err != nil {
		return nil, err
	}
	return r.harvester.Harvest(resp)
}

// Run executes a full harvest. mainCategory/subcategory limit extraction
// to one selection; empty selectors process everything. Failing to find
// any question list aborts the run; every later failure is logged and
// skipped.
func (r *Runner) Run(ctx context.Context, indexURL, mainCategory, subcategory string) (*Summary, error) {
	start := time.Now()
	summary := &Summary{}

	buckets, err := r.HarvestLinks(ctx, indexURL)
	if err != nil {
		return nil, err
	}

	for _, bucket := range buckets {
		summary.LinksFound += len(bucket.Links)
	}
	fmt.Printf("Found %d question links across %d category buckets\n", summary.LinksFound, len(buckets))

	if !r.cfg.Archive.KeepExisting {
		if _, err := r.archiver.Cleanup(mainCategory, subcategory); err != nil {
			return nil, err
		}
	}
	if err := r.archiver.EnsureTree(); err != nil {
		return nil, err
	}

	for _, bucket := range buckets {
		if mainCategory != "" && bucket.Label.Main != mainCategory {
			continue
		}
		if subcategory != "" && bucket.Label.Sub != subcategory {
			continue
		}
		summary.Categories++
		r.processBucket(ctx, bucket, summary)
	}

	summary.Elapsed = time.Since(start)
	return summary, nil
}

// processBucket fetches, extracts, and archives one category's links,
// then writes that category's index files.
func (r *Runner) processBucket(ctx context.Context, bucket *harvest.Bucket, summary *Summary) {
	label := bucket.Label
	fmt.Printf("\nProcessing %s (%d questions)...\n", label, len(bucket.Links))

	// Quant questions fan out into question-type subfolders, each with
	// its own index; everything else indexes at the category folder.
	summariesByPath := make(map[string][]types.QuestionSummary)
	var mirrored []*types.QuestionRecord

	for i, link := range bucket.Links {
		if ctx.Err() != nil {
			return
		}
		fmt.Printf("  [%d/%d] Extracting: %s\n", i+1, len(bucket.Links), link.URL)

		record, ok := r.processLink(ctx, link, label)
		if !ok {
			summary.Failed++
			continue
		}
		if record == nil {
			summary.Skipped++
			continue
		}

		nameSeed := record.Question
		if nameSeed == "" {
			nameSeed = link.Text
		}
		categoryPath := r.archiver.CategoryPath(label, record.DetectedType)

		path, err := r.archiver.Save(record, categoryPath, nameSeed)
		if err != nil {
			r.logger.Error("archive failed", "url", link.URL, "error", err)
			summary.Failed++
			continue
		}

		summariesByPath[categoryPath] = append(summariesByPath[categoryPath], types.QuestionSummary{
			Filename:        filepath.Base(path),
			URL:             link.URL,
			QuestionPreview: record.Preview(100),
			QuestionType:    record.DetectedType,
		})
		mirrored = append(mirrored, record)
		summary.Extracted++

		// Politeness: fixed delay after each successful question fetch.
		select {
		case <-ctx.Done():
			return
		case <-time.After(r.cfg.Fetcher.PolitenessDelay):
		}
	}

	for categoryPath, summaries := range summariesByPath {
		if err := r.archiver.WriteIndex(categoryPath, summaries); err != nil {
			r.logger.Error("index write failed", "path", categoryPath, "error", err)
		}
	}

	if r.mirror != nil && len(mirrored) > 0 {
		if err := r.mirror.Store(mirrored); err != nil {
			r.logger.Error("storage mirror failed", "backend", r.mirror.Name(), "error", err)
		}
	}
}

// processLink fetches and extracts one question. The bool result is
// false on failure; a nil record with true means the page was fetched
// but rejected (too short, boilerplate, duplicate).
func (r *Runner) processLink(ctx context.Context, link types.LinkRecord, label taxonomy.Label) (*types.QuestionRecord, bool) {
	resp, err := r.fetchPage(ctx, link.URL, "question")
	if err != nil {
		r.logger.Warn("question fetch failed, skipping", "url", link.URL, "error", err)
		return nil, false
	}

	record, err := r.extractor.Extract(resp)
	if err != nil {
		r.logger.Debug("extraction rejected page", "url", link.URL, "error", err)
		return nil, true
	}

	r.fileRecord(record, link, label)

	record, err = r.chain.Process(record)
	if err != nil {
		r.logger.Warn("record middleware failed", "url", link.URL, "error", err)
		return nil, false
	}
	return record, true
}

// fileRecord fills in the category fields that depend on where the link
// was harvested and, for the quant section, on the detected type.
func (r *Runner) fileRecord(record *types.QuestionRecord, link types.LinkRecord, label taxonomy.Label) {
	detected := record.QuestionType
	if detected == "" {
		detected = link.QuestionType
	}
	record.MainCategory = label.Main
	record.DetectedType = detected

	if label.Main == taxonomy.QuantSection {
		folder := taxonomy.QuestionTypeFolder(detected)
		record.Subsection = label.Sub
		record.QuestionType = folder
		record.Category = label.Sub + " > " + folder
		return
	}

	record.QuestionType = detected
	record.Category = label.Sub
}

// fetchPage issues one request through the configured fetcher with the
// retry policy applied.
func (r *Runner) fetchPage(ctx context.Context, rawURL, tag string) (*types.Response, error) {
	req, err := types.NewRequest(rawURL)
	if err != nil {
		return nil, err
	}
	req.Tag = tag
	req.MaxRetries = r.cfg.Fetcher.MaxRetries
	return fetcher.FetchWithRetry(ctx, r.fetch, req, r.cfg.Fetcher.RetryDelay, r.logger)
}
