package output

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/bnema/cosmetic-filters/internal/cosmetic"
	"github.com/bnema/cosmetic-filters/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustParseAll(t *testing.T, lines ...string) []*cosmetic.Filter {
	t.Helper()
	filters := make([]*cosmetic.Filter, 0, len(lines))
	for _, line := range lines {
		f, err := cosmetic.Parse(line, false, 0)
		require.NoError(t, err, line)
		filters = append(filters, f)
	}
	return filters
}

func TestSplit(t *testing.T) {
	filters := mustParseAll(t, "##.a", "##.b", "##.c", "##.d", "##.e")

	tests := []struct {
		name      string
		maxRules  int
		wantNames []string
		wantSizes []int
	}{
		{"fits", 10, []string{"list"}, []int{5}},
		{"exact", 5, []string{"list"}, []int{5}},
		{"split", 2, []string{"list-part1", "list-part2", "list-part3"}, []int{2, 2, 1}},
		{"default", 0, []string{"list"}, []int{5}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			parts := NewSplitter(tt.maxRules).Split(filters, "list")
			require.Len(t, parts, len(tt.wantNames))

			var merged []*cosmetic.Filter
			for i, p := range parts {
				assert.Equal(t, tt.wantNames[i], p.Name)
				assert.Len(t, p.Filters, tt.wantSizes[i])
				merged = append(merged, p.Filters...)
			}
			assert.Equal(t, filters, merged)
		})
	}
}

func TestDeduplicate(t *testing.T) {
	filters := mustParseAll(t,
		"example.com##.ad",
		"example.com##.ad",
		"example.com#@#.ad",
		"example.com##.ad:remove()",
		"other.com##.ad",
		"##.ad",
		"example.com##.ad",
	)

	got := Deduplicate(filters)
	require.Len(t, got, 5)
	assert.Same(t, filters[0], got[0])
	assert.Same(t, filters[2], got[1])
	assert.Same(t, filters[5], got[4])
}

func TestDeduplicateIgnoresRawLine(t *testing.T) {
	a, err := cosmetic.Parse("a.com,b.com##.ad", true, 0)
	require.NoError(t, err)
	b, err := cosmetic.Parse("b.com,a.com##.ad", true, 0)
	require.NoError(t, err)

	assert.Len(t, Deduplicate([]*cosmetic.Filter{a, b}), 1)
}

func TestWriter(t *testing.T) {
	dir := t.TempDir()
	w := NewWriter(dir, 2)
	w.now = func() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC) }

	first := models.CompiledList{
		Name:    "first",
		Source:  "https://lists.example/first.txt",
		Filters: mustParseAll(t, "##.a", "example.com##.b", "example.com#@#.b"),
	}
	second := models.CompiledList{
		Name:    "second",
		Source:  "second.txt",
		Filters: mustParseAll(t, "##.a", "a.com##+js(nowebrtc.js)"),
	}

	res, err := w.WriteList(first, 4)
	require.NoError(t, err)
	assert.Equal(t, ListResult{
		Name:           "first",
		Source:         "https://lists.example/first.txt",
		RulesCount:     3,
		GenericCount:   1,
		SpecificCount:  1,
		ExceptionCount: 1,
		SkippedCount:   4,
		Files:          []string{"first-part1.json", "first-part2.json"},
	}, res)

	res2, err := w.WriteList(second, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, res2.ScriptletCount)
	assert.Equal(t, []string{"second.json"}, res2.Files)

	combined, err := w.WriteCombined([]models.CompiledList{first, second})
	require.NoError(t, err)
	assert.Equal(t, 4, combined.TotalRules)
	assert.Equal(t, []string{"combined-part1.json", "combined-part2.json"}, combined.Files)

	require.NoError(t, w.WriteManifest(map[string]ListResult{"first": res, "second": res2}, &combined))

	var part []*cosmetic.Filter
	data, err := os.ReadFile(filepath.Join(dir, "first-part1.json"))
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, &part))
	assert.Equal(t, first.Filters[:2], part)

	var manifest Manifest
	data, err = os.ReadFile(filepath.Join(dir, "manifest.json"))
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, &manifest))
	assert.Equal(t, "2026.03.01", manifest.Version)
	assert.Equal(t, "2026-03-01T12:00:00Z", manifest.GeneratedAt)
	assert.Len(t, manifest.Lists, 2)
	require.NotNil(t, manifest.Combined)
	assert.Equal(t, 4, manifest.Combined.TotalRules)
}

func TestWriterEmptyList(t *testing.T) {
	dir := t.TempDir()
	w := NewWriter(dir, 0)

	res, err := w.WriteList(models.CompiledList{Name: "empty"}, 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"empty.json"}, res.Files)

	data, err := os.ReadFile(filepath.Join(dir, "empty.json"))
	require.NoError(t, err)
	assert.JSONEq(t, "[]", string(data))
}
