package output

import (
	"fmt"
	"strings"

	"github.com/bnema/cosmetic-filters/internal/cosmetic"
)

// MaxRulesPerFile is the default number of filters per output file
const MaxRulesPerFile = 50000

// Part is one output file worth of filters
type Part struct {
	Name    string
	Filters []*cosmetic.Filter
}

// Splitter splits filters into chunks of bounded size
type Splitter struct {
	maxRules int
}

// NewSplitter creates a splitter with the given max rules per file
func NewSplitter(maxRules int) *Splitter {
	if maxRules <= 0 {
		maxRules = MaxRulesPerFile
	}
	return &Splitter{maxRules: maxRules}
}

// Split divides filters into multiple parts if needed, keeping their order.
// A single part keeps baseName, otherwise parts are named baseName-partN.
func (s *Splitter) Split(filters []*cosmetic.Filter, baseName string) []Part {
	if len(filters) <= s.maxRules {
		return []Part{{Name: baseName, Filters: filters}}
	}

	numParts := (len(filters) + s.maxRules - 1) / s.maxRules
	parts := make([]Part, 0, numParts)

	for i := 0; i < numParts; i++ {
		start := i * s.maxRules
		end := min(start+s.maxRules, len(filters))

		parts = append(parts, Part{
			Name:    fmt.Sprintf("%s-part%d", baseName, i+1),
			Filters: filters[start:end],
		})
	}

	return parts
}

// Deduplicate removes filters that compile to the same rule, keeping the
// first occurrence. Raw lines are ignored.
func Deduplicate(filters []*cosmetic.Filter) []*cosmetic.Filter {
	seen := make(map[string]bool)
	result := make([]*cosmetic.Filter, 0, len(filters))

	for _, f := range filters {
		key := dedupKey(f)
		if !seen[key] {
			seen[key] = true
			result = append(result, f)
		}
	}

	return result
}

func dedupKey(f *cosmetic.Filter) string {
	var b strings.Builder
	// nil and empty location lists differ in meaning
	for _, hashes := range [][]uint64{f.Hostnames, f.Entities, f.NotHostnames, f.NotEntities} {
		if hashes == nil {
			b.WriteString("-|")
			continue
		}
		fmt.Fprintf(&b, "%v|", hashes)
	}
	fmt.Fprintf(&b, "%d|%d|%s", f.Mask, f.Permission, f.Selector)
	if f.Action != nil {
		b.WriteString(f.Action.String())
	}
	return b.String()
}
