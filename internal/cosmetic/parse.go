package cosmetic

import (
	"slices"
	"strings"

	"github.com/bnema/cosmetic-filters/internal/hostname"
	"github.com/bnema/cosmetic-filters/internal/selector"
)

// Action tokens recognized at the end of a rule
const (
	styleToken       = ":style("
	removeAttrToken  = ":remove-attr("
	removeClassToken = ":remove-class("
	removeToken      = ":remove()"
	scriptletPrefix  = "+js("
)

// Compiler parses cosmetic rules using a given selector validator
type Compiler struct {
	validator selector.Validator
}

// NewCompiler creates a compiler. A nil validator selects selector.Strict.
func NewCompiler(v selector.Validator) *Compiler {
	if v == nil {
		v = selector.Strict{}
	}
	return &Compiler{validator: v}
}

var defaultCompiler = NewCompiler(nil)

// Parse compiles line with the strict selector validator. See
// Compiler.Parse.
func Parse(line string, debug bool, permission PermissionMask) (*Filter, error) {
	return defaultCompiler.Parse(line, debug, permission)
}

// Parse compiles a single cosmetic rule. When debug is set, the original
// line is kept in Filter.RawLine. permission is stored as is.
func (c *Compiler) Parse(line string, debug bool, permission PermissionMask) (*Filter, error) {
	sharp := strings.IndexByte(line, '#')
	if sharp == -1 {
		return nil, ErrMissingSharp
	}

	afterSharp := sharp + 1
	second := strings.IndexByte(line[afterSharp:], '#')
	if second == -1 {
		return nil, ErrUnsupportedSyntax
	}
	second += afterSharp

	var mask Mask
	extended := false

	// options embedded between the two sharps; the exception marker always
	// comes first
	marker := line[afterSharp:second]
	if strings.HasPrefix(marker, "@") {
		if sharp == 0 {
			return nil, ErrGenericUnhide
		}
		mask |= MaskUnhide
		marker = marker[1:]
	}
	switch {
	case strings.HasPrefix(marker, "%"):
		// AdGuard script injection `#%#`
		return nil, ErrUnsupportedSyntax
	case strings.HasPrefix(marker, "$"):
		// AdGuard style syntax `#$#`
		return nil, ErrUnsupportedSyntax
	case strings.HasPrefix(marker, "?"):
		extended = true
		marker = marker[1:]
	}
	if marker != "" {
		return nil, ErrUnsupportedSyntax
	}

	var loc locations
	if sharp > 0 {
		var err error
		if loc, err = parseLocations(line[:sharp], &mask); err != nil {
			return nil, err
		}
	}

	suffixStart := second + 1
	suffix := strings.TrimSpace(line[suffixStart:])
	if suffix == "" {
		return nil, ErrEmptyRule
	}

	var (
		sel    string
		action *Action
	)
	raw := line[suffixStart:]
	if len(raw) > len(scriptletPrefix) && strings.HasPrefix(raw, scriptletPrefix) && strings.HasSuffix(line, ")") {
		if sharp == 0 {
			return nil, ErrGenericScriptInject
		}
		mask |= MaskScriptInject
		sel = raw[len(scriptletPrefix) : len(raw)-1]
	} else {
		candidate, a, err := c.splitAction(suffix)
		if err != nil {
			return nil, err
		}
		validated, ok := c.validator.ValidateSelector(candidate, extended)
		if !ok {
			return nil, ErrInvalidCSSSelector
		}
		if sharp == 0 && a != nil {
			return nil, ErrGenericAction
		}
		sel, action = validated, a
	}

	if (loc.notEntities != nil || loc.notHostnames != nil) && mask.Has(MaskUnhide) {
		return nil, ErrDoubleNegation
	}

	if !hostname.IsASCII(sel) {
		mask |= MaskIsUnicode
	}

	var key *string
	if !mask.Has(MaskScriptInject) && (strings.HasPrefix(sel, ".") || strings.HasPrefix(sel, "#")) {
		k, err := keyFromSelector(sel)
		if err != nil {
			return nil, err
		}
		if sel[0] == '.' {
			mask |= MaskIsClassSelector
		} else {
			mask |= MaskIsIDSelector
		}
		if k == sel {
			mask |= MaskIsSimple
		}
		bare := k[1:]
		key = &bare
	}

	f := &Filter{
		Hostnames:    loc.hostnames,
		Entities:     loc.entities,
		NotHostnames: loc.notHostnames,
		NotEntities:  loc.notEntities,
		Mask:         mask,
		Selector:     sel,
		Key:          key,
		Action:       action,
		Permission:   permission,
	}
	if debug {
		l := line
		f.RawLine = &l
	}
	return f, nil
}

// locations holds the hashes of the comma separated items before the first
// sharp
type locations struct {
	hostnames    []hostname.Hash
	entities     []hostname.Hash
	notHostnames []hostname.Hash
	notEntities  []hostname.Hash
}

// parseLocations parses `a.com,~b.com,c.*,~d.*`. Unicode items are converted
// to punycode and flag the mask as unicode.
func parseLocations(s string, mask *Mask) (locations, error) {
	var loc locations

	// AdGuard `[$path=...]` modifiers
	if strings.HasPrefix(s, "[") {
		return loc, ErrLocationModifiersUnsupported
	}

	unsupported := false
	for _, part := range strings.Split(s, ",") {
		if part == "" {
			continue
		}

		negated := strings.HasPrefix(part, "~")
		entity := strings.HasSuffix(part, ".*")
		name := part
		if negated {
			name = name[1:]
		}
		if entity {
			name = strings.TrimSuffix(name, ".*")
		}

		// AdGuard regex domains
		if strings.HasPrefix(name, "/") {
			unsupported = true
			continue
		}

		if !hostname.IsASCII(name) {
			ascii, err := hostname.ToASCII(name)
			if err != nil {
				return loc, ErrPunycode
			}
			name = ascii
			*mask |= MaskIsUnicode
		}

		h := hostname.FastHash(name)
		switch {
		case negated && entity:
			loc.notEntities = append(loc.notEntities, h)
		case negated:
			loc.notHostnames = append(loc.notHostnames, h)
		case entity:
			loc.entities = append(loc.entities, h)
		default:
			loc.hostnames = append(loc.hostnames, h)
		}
	}

	if unsupported && loc.hostnames == nil && loc.entities == nil &&
		loc.notHostnames == nil && loc.notEntities == nil {
		return loc, ErrUnsupportedSyntax
	}

	for _, hashes := range [][]hostname.Hash{loc.hostnames, loc.entities, loc.notHostnames, loc.notEntities} {
		slices.Sort(hashes)
	}
	return loc, nil
}

// splitAction separates the selector from a trailing action operator
func (c *Compiler) splitAction(s string) (string, *Action, error) {
	if strings.HasPrefix(s, "^") {
		return "", nil, ErrHTMLFilteringUnsupported
	}

	type candidate struct {
		token string
		typ   ActionType
	}
	first, at := candidate{}, -1
	for _, cand := range []candidate{
		{styleToken, ActionStyle},
		{removeAttrToken, ActionRemoveAttr},
		{removeClassToken, ActionRemoveClass},
	} {
		if i := strings.Index(s, cand.token); i != -1 && (at == -1 || i < at) {
			first, at = cand, i
		}
	}

	if at != -1 {
		if !strings.HasSuffix(s, ")") {
			return "", nil, ErrInvalidActionSpecifier
		}
		arg := s[at+len(first.token) : len(s)-1]
		a, err := c.newAction(first.typ, arg)
		if err != nil {
			return "", nil, err
		}
		return s[:at], a, nil
	}

	if before, ok := strings.CutSuffix(s, removeToken); ok {
		return before, &Action{Type: ActionRemove}, nil
	}
	return s, nil, nil
}

func (c *Compiler) newAction(typ ActionType, arg string) (*Action, error) {
	switch typ {
	case ActionStyle:
		if !c.validator.ValidStyle(arg) {
			return nil, ErrInvalidCSSStyle
		}
	case ActionRemoveAttr, ActionRemoveClass:
		// regex and quoted arguments
		if strings.HasPrefix(arg, "/") || strings.HasPrefix(arg, `"`) || strings.HasPrefix(arg, "'") {
			return nil, ErrUnsupportedSyntax
		}
	}
	return &Action{Type: typ, Arg: arg}, nil
}
