// Package cosmetic compiles uBlock-style cosmetic filter rules (`##`, `#@#`,
// `#?#`) and decides whether a compiled rule applies to a page hostname.
package cosmetic

import (
	"fmt"
	"strings"

	"github.com/bnema/cosmetic-filters/internal/hostname"
)

// Mask holds the boolean flags of a cosmetic filter
type Mask uint8

const (
	MaskUnhide Mask = 1 << iota
	MaskScriptInject
	MaskIsUnicode
	MaskIsClassSelector
	MaskIsIDSelector
	MaskIsSimple

	// MaskNone is the empty mask. Has(MaskNone) is always true, never use it
	// as a match condition.
	MaskNone Mask = 0
)

var maskNames = []struct {
	flag Mask
	name string
}{
	{MaskUnhide, "unhide"},
	{MaskScriptInject, "script-inject"},
	{MaskIsUnicode, "unicode"},
	{MaskIsClassSelector, "class"},
	{MaskIsIDSelector, "id"},
	{MaskIsSimple, "simple"},
}

// Has reports whether all flags of f are set
func (m Mask) Has(f Mask) bool {
	return m&f == f
}

func (m Mask) String() string {
	var parts []string
	for _, n := range maskNames {
		if m.Has(n.flag) {
			parts = append(parts, n.name)
		}
	}
	if len(parts) == 0 {
		return "none"
	}
	return strings.Join(parts, "|")
}

// PermissionMask gates which scriptlet resources a filter may inject. It is
// carried through compilation untouched.
type PermissionMask uint8

// ActionType identifies what a cosmetic filter does to matching elements
type ActionType uint8

const (
	ActionRemove ActionType = iota
	ActionStyle
	ActionRemoveAttr
	ActionRemoveClass
)

var actionTypeNames = map[ActionType]string{
	ActionRemove:      "remove",
	ActionStyle:       "style",
	ActionRemoveAttr:  "remove-attr",
	ActionRemoveClass: "remove-class",
}

func (t ActionType) String() string {
	if s, ok := actionTypeNames[t]; ok {
		return s
	}
	return fmt.Sprintf("ActionType(%d)", uint8(t))
}

// MarshalText encodes the action type by name
func (t ActionType) MarshalText() ([]byte, error) {
	s, ok := actionTypeNames[t]
	if !ok {
		return nil, fmt.Errorf("unknown action type %d", uint8(t))
	}
	return []byte(s), nil
}

// UnmarshalText decodes an action type name
func (t *ActionType) UnmarshalText(b []byte) error {
	for k, v := range actionTypeNames {
		if v == string(b) {
			*t = k
			return nil
		}
	}
	return fmt.Errorf("unknown action type %q", b)
}

// Action is the page mutation requested by a filter instead of hiding
type Action struct {
	Type ActionType `json:"type"`
	// Arg is the style declaration, attribute or class name. Empty for
	// ActionRemove.
	Arg string `json:"arg,omitempty"`
}

func (a Action) String() string {
	if a.Type == ActionRemove {
		return ":remove()"
	}
	return fmt.Sprintf(":%s(%s)", a.Type, a.Arg)
}

// Filter is a compiled cosmetic filter rule. It is never modified after
// Parse returns it.
//
// Location slices are nil when the rule does not specify that kind of
// location; otherwise they hold sorted hashes.
type Filter struct {
	Hostnames    []hostname.Hash `json:"hostnames"`
	Entities     []hostname.Hash `json:"entities"`
	NotHostnames []hostname.Hash `json:"not_hostnames"`
	NotEntities  []hostname.Hash `json:"not_entities"`

	Mask Mask `json:"mask"`
	// Selector is the canonical CSS selector, or the raw scriptlet arguments
	// when MaskScriptInject is set.
	Selector string `json:"selector"`
	// Key is the leading class or id name of Selector, without its `.` or `#`
	Key        *string        `json:"key,omitempty"`
	Action     *Action        `json:"action,omitempty"`
	RawLine    *string        `json:"raw_line,omitempty"`
	Permission PermissionMask `json:"permission"`
}

// HasHostnameConstraint reports whether the filter names any hostname or
// entity, negated or not
func (f *Filter) HasHostnameConstraint() bool {
	return f.Hostnames != nil ||
		f.Entities != nil ||
		f.NotHostnames != nil ||
		f.NotEntities != nil
}

// IsGeneric reports whether the filter applies to every page
func (f *Filter) IsGeneric() bool {
	return !f.HasHostnameConstraint()
}

// IsUnhide reports whether the filter is an exception (`#@#`)
func (f *Filter) IsUnhide() bool {
	return f.Mask.Has(MaskUnhide)
}

// IsScriptInject reports whether the filter injects a scriptlet (`+js()`)
func (f *Filter) IsScriptInject() bool {
	return f.Mask.Has(MaskScriptInject)
}

// String renders a short human readable description, mainly for the CLI
func (f *Filter) String() string {
	var b strings.Builder
	b.WriteString(f.Selector)
	if f.Action != nil {
		b.WriteString(f.Action.String())
	}
	fmt.Fprintf(&b, " [%s]", f.Mask)
	return b.String()
}

// clone returns a deep copy of f
func (f *Filter) clone() *Filter {
	c := *f
	c.Hostnames = cloneHashes(f.Hostnames)
	c.Entities = cloneHashes(f.Entities)
	c.NotHostnames = cloneHashes(f.NotHostnames)
	c.NotEntities = cloneHashes(f.NotEntities)
	if f.Key != nil {
		k := *f.Key
		c.Key = &k
	}
	if f.Action != nil {
		a := *f.Action
		c.Action = &a
	}
	if f.RawLine != nil {
		r := *f.RawLine
		c.RawLine = &r
	}
	return &c
}

func cloneHashes(h []hostname.Hash) []hostname.Hash {
	if h == nil {
		return nil
	}
	return append(make([]hostname.Hash, 0, len(h)), h...)
}
