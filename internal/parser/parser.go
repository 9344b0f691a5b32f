// Package parser compiles the cosmetic rules of a whole ABP/uBlock filter
// list, skipping comments and network rules.
package parser

import (
	"bufio"
	"io"
	"strings"

	"github.com/bnema/cosmetic-filters/internal/cosmetic"
	"go.uber.org/zap"
)

// maxLineSize bounds a single list line; some lists carry very long
// selector groups
const maxLineSize = 1 << 20

// Parser compiles the cosmetic rules of filter lists
type Parser struct {
	compiler *cosmetic.Compiler
	opts     Options
	logger   *zap.Logger
	stats    Stats
}

// Options controls list compilation
type Options struct {
	Debug          bool
	HiddenGenerics bool
	Permission     cosmetic.PermissionMask
}

// Stats tracks parsing statistics
type Stats struct {
	Total          int
	Comments       int
	Network        int
	Cosmetic       int
	Exceptions     int
	Scriptlets     int
	HiddenGenerics int
	Failed         int
	SkipReasons    map[string]int // failed rules keyed by error
}

// New creates a new parser. A nil compiler uses the strict selector
// validator, a nil logger discards everything.
func New(compiler *cosmetic.Compiler, opts Options, logger *zap.Logger) *Parser {
	if compiler == nil {
		compiler = cosmetic.NewCompiler(nil)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Parser{
		compiler: compiler,
		opts:     opts,
		logger:   logger,
		stats: Stats{
			SkipReasons: make(map[string]int),
		},
	}
}

// Stats returns parsing statistics, accumulated over every Parse call
func (p *Parser) Stats() Stats {
	return p.stats
}

// skip records a rule that failed to compile
func (p *Parser) skip(n int, line string, err error) {
	p.stats.Failed++
	p.stats.SkipReasons[err.Error()]++
	p.logger.Debug("skipping cosmetic rule",
		zap.Int("line", n),
		zap.String("rule", line),
		zap.Error(err))
}

// Parse reads a filter list and returns its compiled cosmetic filters in
// list order. Derived hidden generic rules follow the rule they come from.
func (p *Parser) Parse(r io.Reader) ([]*cosmetic.Filter, error) {
	var filters []*cosmetic.Filter
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	n := 0
	for scanner.Scan() {
		n++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		p.stats.Total++

		switch classify(line) {
		case lineComment:
			p.stats.Comments++
			continue
		case lineNetwork:
			p.stats.Network++
			continue
		}

		f, err := p.compiler.Parse(line, p.opts.Debug, p.opts.Permission)
		if err != nil {
			p.skip(n, line, err)
			continue
		}

		p.stats.Cosmetic++
		switch {
		case f.IsUnhide():
			p.stats.Exceptions++
		case f.IsScriptInject():
			p.stats.Scriptlets++
		}
		filters = append(filters, f)

		if p.opts.HiddenGenerics {
			if g := f.HiddenGenericRule(); g != nil {
				p.stats.HiddenGenerics++
				filters = append(filters, g)
			}
		}
	}

	return filters, scanner.Err()
}

type lineKind int

const (
	lineComment lineKind = iota
	lineNetwork
	lineCosmetic
)

// classify routes a trimmed, non-empty list line
func classify(line string) lineKind {
	// Comments and list headers such as `[Adblock Plus 2.0]`
	if strings.HasPrefix(line, "!") {
		return lineComment
	}
	if strings.HasPrefix(line, "[") && strings.HasSuffix(line, "]") {
		return lineComment
	}
	// hosts-file style comments
	if len(line) > 1 && line[0] == '#' && (line[1] == ' ' || line[1] == '\t') {
		return lineComment
	}

	// Network exceptions and anchored patterns never hold cosmetic markers
	if strings.HasPrefix(line, "@@") || strings.HasPrefix(line, "|") {
		return lineNetwork
	}

	sharp := strings.IndexByte(line, '#')
	if sharp == -1 || sharp == len(line)-1 {
		return lineNetwork
	}
	switch line[sharp+1] {
	case '#', '@', '?', '$', '%':
		return lineCosmetic
	}
	return lineNetwork
}
