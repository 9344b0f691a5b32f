// Package output writes compiled cosmetic filters as JSON files, split into
// bounded parts, together with a manifest describing them.
package output

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/bnema/cosmetic-filters/internal/cosmetic"
	"github.com/bnema/cosmetic-filters/internal/models"
)

// ListResult contains compilation results for a single list
type ListResult struct {
	Name           string   `json:"name"`
	Source         string   `json:"source"`
	RulesCount     int      `json:"rules_count"`
	GenericCount   int      `json:"generic_count"`
	SpecificCount  int      `json:"specific_count"`
	ExceptionCount int      `json:"exception_count"`
	ScriptletCount int      `json:"scriptlet_count"`
	SkippedCount   int      `json:"skipped_count"`
	Files          []string `json:"files"`
}

// Manifest contains metadata about the compilation
type Manifest struct {
	Version     string                `json:"version"`
	GeneratedAt string                `json:"generated_at"`
	Lists       map[string]ListResult `json:"lists"`
	Combined    *CombinedInfo         `json:"combined,omitempty"`
}

// CombinedInfo contains combined file info
type CombinedInfo struct {
	TotalRules int      `json:"total_rules"`
	Files      []string `json:"files"`
}

// Writer writes compiled lists into a directory
type Writer struct {
	dir      string
	splitter *Splitter
	now      func() time.Time
}

// NewWriter creates a writer for dir, splitting files at maxRules filters
func NewWriter(dir string, maxRules int) *Writer {
	return &Writer{
		dir:      dir,
		splitter: NewSplitter(maxRules),
		now:      time.Now,
	}
}

// WriteList writes the filters of one compiled list and returns its result
// entry for the manifest. skipped is the number of rules that failed to
// compile.
func (w *Writer) WriteList(list models.CompiledList, skipped int) (ListResult, error) {
	generic, specific, exceptions, scriptlets := list.Counts()
	result := ListResult{
		Name:           list.Name,
		Source:         list.Source,
		RulesCount:     len(list.Filters),
		GenericCount:   generic,
		SpecificCount:  specific,
		ExceptionCount: exceptions,
		ScriptletCount: scriptlets,
		SkippedCount:   skipped,
	}

	files, err := w.writeParts(list.Filters, list.Name)
	if err != nil {
		return result, fmt.Errorf("write list %s: %w", list.Name, err)
	}
	result.Files = files
	return result, nil
}

// WriteCombined deduplicates the filters of every list and writes them as
// the combined output
func (w *Writer) WriteCombined(lists []models.CompiledList) (CombinedInfo, error) {
	var all []*cosmetic.Filter
	for _, l := range lists {
		all = append(all, l.Filters...)
	}
	all = Deduplicate(all)

	files, err := w.writeParts(all, "combined")
	if err != nil {
		return CombinedInfo{}, fmt.Errorf("write combined: %w", err)
	}
	return CombinedInfo{TotalRules: len(all), Files: files}, nil
}

// WriteManifest writes manifest.json
func (w *Writer) WriteManifest(lists map[string]ListResult, combined *CombinedInfo) error {
	now := w.now()
	manifest := Manifest{
		Version:     now.Format("2006.01.02"),
		GeneratedAt: now.UTC().Format(time.RFC3339),
		Lists:       lists,
		Combined:    combined,
	}
	return WriteJSON(w.dir, "manifest.json", manifest)
}

func (w *Writer) writeParts(filters []*cosmetic.Filter, baseName string) ([]string, error) {
	parts := w.splitter.Split(filters, baseName)
	names := make([]string, 0, len(parts))
	for _, part := range parts {
		name := part.Name + ".json"
		filters := part.Filters
		if filters == nil {
			filters = []*cosmetic.Filter{}
		}
		if err := WriteJSON(w.dir, name, filters); err != nil {
			return names, err
		}
		names = append(names, name)
	}
	return names, nil
}

// WriteJSON writes data as indented JSON to dir/filename, creating dir
func WriteJSON(dir, filename string, data any) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	path := filepath.Join(dir, filename)
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(data)
}
