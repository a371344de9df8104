// Package archive writes extracted questions into a category-derived
// folder tree as pretty-printed JSON, one file per question plus one
// index file per category.
package archive

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/gretools/greharvest/internal/taxonomy"
	"github.com/gretools/greharvest/internal/types"
)

var (
	nonWordRe    = regexp.MustCompile(`[^\w\s-]`)
	separatorsRe = regexp.MustCompile(`[-\s]+`)
)

// Archiver owns the output directory tree.
type Archiver struct {
	outputDir   string
	maxFilename int
	logger      *slog.Logger
}

// New creates an Archiver rooted at outputDir.
func New(outputDir string, maxFilename int, logger *slog.Logger) *Archiver {
	return &Archiver{
		outputDir:   outputDir,
		maxFilename: maxFilename,
		logger:      logger.With("component", "archiver"),
	}
}

// OutputDir returns the archive root.
func (a *Archiver) OutputDir() string {
	return a.outputDir
}

// CategoryPath resolves the folder for a label, with quant questions
// filed one level deeper under their question-type folder.
func (a *Archiver) CategoryPath(label taxonomy.Label, questionType string) string {
	if label.Main == taxonomy.QuantSection {
		return filepath.Join(a.outputDir, label.Main, label.Sub, taxonomy.QuestionTypeFolder(questionType))
	}
	return filepath.Join(a.outputDir, label.Main, label.Sub)
}

// EnsureTree pre-creates the full taxonomy folder tree so category
// folders exist even when a run extracts nothing for them.
func (a *Archiver) EnsureTree() error {
	for _, main := range taxonomy.MainCategories {
		for _, sub := range taxonomy.Tree[main] {
			dir := filepath.Join(a.outputDir, main, sub)
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return fmt.Errorf("create category dir: %w", err)
			}
			if main != taxonomy.QuantSection {
				continue
			}
			for _, qt := range taxonomy.QuantQuestionTypes {
				if err := os.MkdirAll(filepath.Join(dir, qt), 0o755); err != nil {
					return fmt.Errorf("create question-type dir: %w", err)
				}
			}
		}
	}
	a.logger.Debug("folder tree ensured", "root", a.outputDir)
	return nil
}

// Cleanup removes previously archived question files for the selected
// categories while preserving the folder structure. Empty selectors
// clean everything. Index files are removed along with question files.
func (a *Archiver) Cleanup(mainCategory, subcategory string) (int, error) {
	deleted := 0

	removeJSON := func(dir string) error {
		entries, err := os.ReadDir(dir)
		if os.IsNotExist(err) {
			return nil
		}
		if err != nil {
			return err
		}
		for _, entry := range entries {
			if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
				continue
			}
			if err := os.Remove(filepath.Join(dir, entry.Name())); err != nil {
				a.logger.Warn("could not delete old question file", "path", entry.Name(), "error", err)
				continue
			}
			deleted++
		}
		return nil
	}

	// Remnant top-level question-type folders directly under the quant
	// section are left over from older layouts; clear those too.
	if mainCategory == "" || mainCategory == taxonomy.QuantSection {
		for _, qt := range taxonomy.QuantQuestionTypes {
			dir := filepath.Join(a.outputDir, taxonomy.QuantSection, qt)
			if err := removeJSON(dir); err != nil {
				return deleted, err
			}
			// Drop the folder if that emptied it.
			if entries, err := os.ReadDir(dir); err == nil && len(entries) == 0 {
				_ = os.Remove(dir)
			}
		}
	}

	for _, main := range taxonomy.MainCategories {
		if mainCategory != "" && main != mainCategory {
			continue
		}
		for _, sub := range taxonomy.Tree[main] {
			if subcategory != "" && sub != subcategory {
				continue
			}
			dir := filepath.Join(a.outputDir, main, sub)
			if err := removeJSON(dir); err != nil {
				return deleted, err
			}
			if main != taxonomy.QuantSection {
				continue
			}
			for _, qt := range taxonomy.QuantQuestionTypes {
				if err := removeJSON(filepath.Join(dir, qt)); err != nil {
					return deleted, err
				}
			}
		}
	}

	a.logger.Info("old question files deleted", "count", deleted)
	return deleted, nil
}

// SanitizeFilename derives a filesystem-safe name from the first eight
// words of the seed text. The operation is idempotent: sanitizing an
// already-sanitized name returns it unchanged.
func (a *Archiver) SanitizeFilename(seed string) string {
	words := strings.Fields(seed)
	if len(words) > 8 {
		words = words[:8]
	}

	name := strings.Join(words, "_")
	name = nonWordRe.ReplaceAllString(name, "")
	name = separatorsRe.ReplaceAllString(name, "_")

	if len(name) > a.maxFilename {
		name = name[:a.maxFilename]
	}
	name = strings.ToLower(strings.Trim(name, "_"))

	if name == "" {
		return "question"
	}
	return name
}

// Save writes a question record under categoryPath, resolving filename
// collisions with an incrementing numeric suffix. Returns the stored
// file path.
func (a *Archiver) Save(record *types.QuestionRecord, categoryPath, nameSeed string) (string, error) {
	if err := os.MkdirAll(categoryPath, 0o755); err != nil {
		return "", &types.StorageError{Backend: "file", Err: err}
	}

	name := a.SanitizeFilename(nameSeed)
	path := filepath.Join(categoryPath, name+".json")

	for counter := 1; ; counter++ {
		if _, err := os.Stat(path); os.IsNotExist(err) {
			break
		}
		path = filepath.Join(categoryPath, fmt.Sprintf("%s_%d.json", name, counter))
	}

	data, err := record.ToJSON()
	if err != nil {
		return "", &types.StorageError{Backend: "file", Err: err}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", &types.StorageError{Backend: "file", Err: err}
	}

	a.logger.Debug("question archived", "path", path)
	return path, nil
}

// WriteIndex overwrites the category's index file with this run's
// summaries. Prior runs' entries are not merged in.
func (a *Archiver) WriteIndex(categoryPath string, summaries []types.QuestionSummary) error {
	index := &types.CategoryIndex{
		Category:       filepath.Base(categoryPath),
		TotalQuestions: len(summaries),
		Questions:      summaries,
	}

	data, err := index.ToJSON()
	if err != nil {
		return &types.StorageError{Backend: "file", Err: err}
	}
	if err := os.MkdirAll(categoryPath, 0o755); err != nil {
		return &types.StorageError{Backend: "file", Err: err}
	}
	if err := os.WriteFile(filepath.Join(categoryPath, "index.json"), data, 0o644); err != nil {
		return &types.StorageError{Backend: "file", Err: err}
	}
	return nil
}
