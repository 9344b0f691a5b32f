// Package selector validates the CSS selectors and style declarations found
// in cosmetic filter rules.
package selector

import (
	"strings"

	"github.com/andybalholm/cascadia"
)

// Validator checks selectors and styles extracted from cosmetic rules
type Validator interface {
	// ValidateSelector returns the canonical form of sel, or false if sel is
	// not acceptable. extended enables ABP/AdGuard extended syntax.
	ValidateSelector(sel string, extended bool) (string, bool)
	// ValidStyle reports whether decl may be applied as a :style() argument
	ValidStyle(decl string) bool
}

// Permissive accepts every selector and style unchanged
type Permissive struct{}

// ValidateSelector returns sel as is
func (Permissive) ValidateSelector(sel string, _ bool) (string, bool) {
	return sel, true
}

// ValidStyle always returns true
func (Permissive) ValidStyle(string) bool {
	return true
}

// Strict validates selectors with a real CSS selector parser
type Strict struct{}

// abpPseudoClasses maps extended-syntax pseudo-classes to the names the
// selector parser understands
var abpPseudoClasses = strings.NewReplacer(
	":-abp-has(", ":has(",
	":-abp-contains(", ":contains(",
)

// ValidateSelector parses sel as a CSS selector group. Comments and rule
// blocks are never accepted, so a selector can't break out of the style
// sheet it is later injected into.
func (Strict) ValidateSelector(sel string, extended bool) (string, bool) {
	sel = strings.TrimSpace(sel)
	if sel == "" {
		return "", false
	}
	if breaksOut(sel) {
		return "", false
	}

	if extended {
		sel = abpPseudoClasses.Replace(sel)
	} else if strings.Contains(sel, ":-abp-") {
		return "", false
	}

	if _, err := cascadia.ParseGroup(sel); err != nil {
		return "", false
	}
	return sel, true
}

// breaksOut reports whether sel holds a brace or a comment opener outside of
// a quoted string
func breaksOut(sel string) bool {
	var quote byte
	for i := 0; i < len(sel); i++ {
		c := sel[i]
		if quote != 0 {
			switch c {
			case '\\':
				i++
			case quote:
				quote = 0
			}
			continue
		}
		switch c {
		case '"', '\'':
			quote = c
		case '\\':
			i++
		case '{', '}':
			return true
		case '/':
			if i+1 < len(sel) && sel[i+1] == '*' {
				return true
			}
		}
	}
	return false
}

// ValidStyle rejects escapes, external resources and comments
func (Strict) ValidStyle(decl string) bool {
	switch {
	case strings.Contains(decl, `\`):
		return false
	case strings.Contains(decl, "url("):
		return false
	case strings.Contains(decl, "/*"):
		return false
	}
	return true
}
