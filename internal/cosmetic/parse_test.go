package cosmetic

import (
	"encoding/json"
	"slices"
	"strings"
	"testing"

	"github.com/bnema/cosmetic-filters/internal/hostname"
	"github.com/bnema/cosmetic-filters/internal/selector"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustParse(t *testing.T, line string) *Filter {
	t.Helper()
	f, err := Parse(line, false, 0)
	require.NoError(t, err, line)
	return f
}

func strPtr(s string) *string {
	return &s
}

func TestParse(t *testing.T) {
	tests := []struct {
		name     string
		line     string
		expected Filter
	}{
		{
			name:     "generic tag and class",
			line:     "##div.popup",
			expected: Filter{Selector: "div.popup"},
		},
		{
			name: "generic id",
			line: "###selector",
			expected: Filter{
				Selector: "#selector",
				Key:      strPtr("selector"),
				Mask:     MaskIsIDSelector | MaskIsSimple,
			},
		},
		{
			name: "generic class",
			line: "##.selector",
			expected: Filter{
				Selector: ".selector",
				Key:      strPtr("selector"),
				Mask:     MaskIsClassSelector | MaskIsSimple,
			},
		},
		{
			name:     "tag with attribute",
			line:     `##a[href="foo.com"]`,
			expected: Filter{Selector: `a[href="foo.com"]`},
		},
		{
			name:     "bare attribute",
			line:     `##[href="foo.com"]`,
			expected: Filter{Selector: `[href="foo.com"]`},
		},
		{
			name: "single hostname",
			line: `u00p.com##div[class^="adv-box"]`,
			expected: Filter{
				Selector:  `div[class^="adv-box"]`,
				Hostnames: hostname.SortedHashes("u00p.com"),
			},
		},
		{
			name: "class with trailing combinator is not simple",
			line: `distractify.com##.article-content > .ad`,
			expected: Filter{
				Selector:  `.article-content > .ad`,
				Hostnames: hostname.SortedHashes("distractify.com"),
				Key:       strPtr("article-content"),
				Mask:      MaskIsClassSelector,
			},
		},
		{
			name: "all four location kinds",
			line: "a.com,~b.a.com,foo.*,~bar.*##.ad",
			expected: Filter{
				Selector:     ".ad",
				Hostnames:    hostname.SortedHashes("a.com"),
				NotHostnames: hostname.SortedHashes("b.a.com"),
				Entities:     hostname.SortedHashes("foo"),
				NotEntities:  hostname.SortedHashes("bar"),
				Key:          strPtr("ad"),
				Mask:         MaskIsClassSelector | MaskIsSimple,
			},
		},
		{
			name: "empty location tokens are dropped",
			line: ",a.com,,b.com,##.ad",
			expected: Filter{
				Selector:  ".ad",
				Hostnames: hostname.SortedHashes("a.com", "b.com"),
				Key:       strPtr("ad"),
				Mask:      MaskIsClassSelector | MaskIsSimple,
			},
		},
		{
			name: "exception",
			line: "example.com#@#.banner",
			expected: Filter{
				Selector:  ".banner",
				Hostnames: hostname.SortedHashes("example.com"),
				Key:       strPtr("banner"),
				Mask:      MaskUnhide | MaskIsClassSelector | MaskIsSimple,
			},
		},
		{
			name: "style action",
			line: "example.com###adBanner:style(background: transparent)",
			expected: Filter{
				Selector:  "#adBanner",
				Hostnames: hostname.SortedHashes("example.com"),
				Key:       strPtr("adBanner"),
				Action:    &Action{Type: ActionStyle, Arg: "background: transparent"},
				Mask:      MaskIsIDSelector | MaskIsSimple,
			},
		},
		{
			name: "style action with important flags",
			line: "chip.de##.video-wrapper > video[style]:style(display:block!important;padding-top:0!important;)",
			expected: Filter{
				Selector:  ".video-wrapper > video[style]",
				Hostnames: hostname.SortedHashes("chip.de"),
				Key:       strPtr("video-wrapper"),
				Action:    &Action{Type: ActionStyle, Arg: "display:block!important;padding-top:0!important;"},
				Mask:      MaskIsClassSelector,
			},
		},
		{
			name: "style containing a sharp",
			line: "imdb.com##body#styleguide-v2:style(background-color: #e3e2dd !important; background-image: none !important;)",
			expected: Filter{
				Selector:  "body#styleguide-v2",
				Hostnames: hostname.SortedHashes("imdb.com"),
				Action:    &Action{Type: ActionStyle, Arg: "background-color: #e3e2dd !important; background-image: none !important;"},
			},
		},
		{
			name: "style on attribute selector",
			line: `moonbit.co.in,moondoge.co.in,moonliteco.in##[src^="//coinad.com/ads/"]:style(visibility: collapse !important)`,
			expected: Filter{
				Selector:  `[src^="//coinad.com/ads/"]`,
				Hostnames: hostname.SortedHashes("moonbit.co.in", "moondoge.co.in", "moonliteco.in"),
				Action:    &Action{Type: ActionStyle, Arg: "visibility: collapse !important"},
			},
		},
		{
			name: "remove action",
			line: "example.com##.ad:remove()",
			expected: Filter{
				Selector:  ".ad",
				Hostnames: hostname.SortedHashes("example.com"),
				Key:       strPtr("ad"),
				Action:    &Action{Type: ActionRemove},
				Mask:      MaskIsClassSelector | MaskIsSimple,
			},
		},
		{
			name: "remove attribute action",
			line: "example.com##a.link:remove-attr(onclick)",
			expected: Filter{
				Selector:  "a.link",
				Hostnames: hostname.SortedHashes("example.com"),
				Action:    &Action{Type: ActionRemoveAttr, Arg: "onclick"},
			},
		},
		{
			name: "remove class action",
			line: "example.com##.ad:remove-class(advert)",
			expected: Filter{
				Selector:  ".ad",
				Hostnames: hostname.SortedHashes("example.com"),
				Key:       strPtr("ad"),
				Action:    &Action{Type: ActionRemoveClass, Arg: "advert"},
				Mask:      MaskIsClassSelector | MaskIsSimple,
			},
		},
		{
			name: "earliest action token wins",
			line: "example.com##.ad:remove-class(x):style(color: red)",
			expected: Filter{
				Selector:  ".ad",
				Hostnames: hostname.SortedHashes("example.com"),
				Key:       strPtr("ad"),
				Action:    &Action{Type: ActionRemoveClass, Arg: "x):style(color: red"},
				Mask:      MaskIsClassSelector | MaskIsSimple,
			},
		},
		{
			name: "script injection",
			line: "a.com##+js(foo.js)",
			expected: Filter{
				Selector:  "foo.js",
				Hostnames: hostname.SortedHashes("a.com"),
				Mask:      MaskScriptInject,
			},
		},
		{
			name: "script injection with arguments and entity",
			line: "fussballdaten.de,gameswelt.*##+js(abort-current-inline-script.js, Number.isNaN)",
			expected: Filter{
				Selector:  "abort-current-inline-script.js, Number.isNaN",
				Hostnames: hostname.SortedHashes("fussballdaten.de"),
				Entities:  hostname.SortedHashes("gameswelt"),
				Mask:      MaskScriptInject,
			},
		},
		{
			name: "script injection arguments are verbatim",
			line: "computerbild.de##+js(setTimeout-defuser.js, ())return)",
			expected: Filter{
				Selector:  "setTimeout-defuser.js, ())return",
				Hostnames: hostname.SortedHashes("computerbild.de"),
				Mask:      MaskScriptInject,
			},
		},
		{
			name: "extended syntax is canonicalized",
			line: "example.com#?#div:-abp-has(.ad)",
			expected: Filter{
				Selector:  "div:has(.ad)",
				Hostnames: hostname.SortedHashes("example.com"),
			},
		},
		{
			name: "unicode selector",
			line: "###неделя",
			expected: Filter{
				Selector: "#неделя",
				Key:      strPtr("неделя"),
				Mask:     MaskIsUnicode | MaskIsIDSelector | MaskIsSimple,
			},
		},
		{
			name: "unicode hostname",
			line: "неlloworlд.com#@##week",
			expected: Filter{
				Selector:  "#week",
				Hostnames: hostname.SortedHashes("xn--lloworl-5ggb3f.com"),
				Key:       strPtr("week"),
				Mask:      MaskUnhide | MaskIsUnicode | MaskIsIDSelector | MaskIsSimple,
			},
		},
		{
			name: "regex domains are dropped next to supported ones",
			line: "/ads?/,example.com##.ad",
			expected: Filter{
				Selector:  ".ad",
				Hostnames: hostname.SortedHashes("example.com"),
				Key:       strPtr("ad"),
				Mask:      MaskIsClassSelector | MaskIsSimple,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := mustParse(t, tt.line)
			assert.Equal(t, &tt.expected, got)
		})
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		line string
		err  error
	}{
		{"", ErrMissingSharp},
		{"example.com", ErrMissingSharp},
		{"example.com#.ad", ErrUnsupportedSyntax},
		{"##", ErrEmptyRule},
		{"example.com##   ", ErrEmptyRule},
		{"#@#.ad", ErrGenericUnhide},
		{"example.com#%#window.x = 1", ErrUnsupportedSyntax},
		{"example.com#@%#window.x = 1", ErrUnsupportedSyntax},
		{"example.com#$#body { color: red }", ErrUnsupportedSyntax},
		{"example.com#x#.ad", ErrUnsupportedSyntax},
		{"example.com#?x#.ad", ErrUnsupportedSyntax},
		{"##+js(foo.js)", ErrGenericScriptInject},
		{"##.ad:remove()", ErrGenericAction},
		{"##.ad:style(color: red)", ErrGenericAction},
		{"~foo.com#@#.selector", ErrDoubleNegation},
		{"~foo.*#@#.selector", ErrDoubleNegation},
		{"readcomiconline.to##^script:has-text(this[atob)", ErrHTMLFilteringUnsupported},
		{"example.com##.ad:style(color: red", ErrInvalidActionSpecifier},
		{"example.com##.ad:style(background: url(https://x.test/a.png))", ErrInvalidCSSStyle},
		{`example.com##.ad:remove-attr("onclick")`, ErrUnsupportedSyntax},
		{"example.com##.ad:remove-class(/^ad/)", ErrUnsupportedSyntax},
		{"example.com##.ad:remove-class('ad')", ErrUnsupportedSyntax},
		{"example.com##rm -rf ./*", ErrInvalidCSSSelector},
		{"example.com##input,input/*", ErrInvalidCSSSelector},
		{"example.com##div:-abp-has(.ad)", ErrInvalidCSSSelector},
		{"[$path=/page]example.com##.ad", ErrLocationModifiersUnsupported},
		{"/ads?/##.ad", ErrUnsupportedSyntax},
	}

	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			f, err := Parse(tt.line, false, 0)
			assert.Nil(t, f)
			assert.ErrorIs(t, err, tt.err)
			assert.Contains(t, AllErrors(), err)
		})
	}
}

func TestParseIsDeterministic(t *testing.T) {
	for _, line := range []string{"~foo.com#@#.x", "example.com##.ad", "##"} {
		f1, err1 := Parse(line, false, 0)
		f2, err2 := Parse(line, false, 0)
		assert.Equal(t, err1, err2)
		assert.Equal(t, f1, f2)
	}
}

func TestParseHostnamesSortedWithDuplicates(t *testing.T) {
	f := mustParse(t, "c.com,a.com,b.com,a.com##.ad")
	require.Len(t, f.Hostnames, 4)
	assert.True(t, slices.IsSorted(f.Hostnames))
	assert.ElementsMatch(t,
		[]hostname.Hash{
			hostname.FastHash("a.com"),
			hostname.FastHash("a.com"),
			hostname.FastHash("b.com"),
			hostname.FastHash("c.com"),
		},
		f.Hostnames)
	assert.Nil(t, f.Entities)
	assert.Nil(t, f.NotHostnames)
	assert.Nil(t, f.NotEntities)
}

func TestParseUnicodeHostnameWithUnderscore(t *testing.T) {
	f, err := Parse("ex_ämple.com##.ad", false, 0)
	require.NoError(t, err)

	ascii, err := hostname.ToASCII("ex_ämple.com")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(ascii, "xn--ex_"), ascii)
	assert.Equal(t, hostname.SortedHashes(ascii), f.Hostnames)
	assert.Len(t, f.Hostnames, 1)
	assert.True(t, f.Mask.Has(MaskIsUnicode))
}

func TestParseDebugAndPermission(t *testing.T) {
	const line = "a.com##+js(nowebrtc.js)"
	f, err := Parse(line, true, PermissionMask(0b101))
	require.NoError(t, err)
	require.NotNil(t, f.RawLine)
	assert.Equal(t, line, *f.RawLine)
	assert.Equal(t, PermissionMask(0b101), f.Permission)

	f = mustParse(t, line)
	assert.Nil(t, f.RawLine)
	assert.Nil(t, f.Key)
}

func TestCompilerWithPermissiveValidator(t *testing.T) {
	c := NewCompiler(selector.Permissive{})

	// rejected by the strict validator, accepted as is here
	f, err := c.Parse("example.com##div:-abp-has(.ad)", false, 0)
	require.NoError(t, err)
	assert.Equal(t, "div:-abp-has(.ad)", f.Selector)

	f, err = c.Parse("example.com##.ad:style(background: url(x))", false, 0)
	require.NoError(t, err)
	assert.Equal(t, &Action{Type: ActionStyle, Arg: "background: url(x)"}, f.Action)

	// key extraction still validates the leading token
	_, err = c.Parse(`example.com###\5fffffff bad`, false, 0)
	assert.ErrorIs(t, err, ErrInvalidCSSSelector)
}

func TestFilterJSONRoundTrip(t *testing.T) {
	lines := []string{
		"##.selector",
		"a.com,~b.a.com,foo.*,~bar.*##.ad",
		"example.com###adBanner:style(background: transparent)",
		"example.com##.ad:remove()",
		"a.com##+js(foo.js)",
		"неlloworlд.com#@##week",
	}

	for _, line := range lines {
		t.Run(line, func(t *testing.T) {
			f, err := Parse(line, true, 3)
			require.NoError(t, err)

			b, err := json.Marshal(f)
			require.NoError(t, err)

			var decoded Filter
			require.NoError(t, json.Unmarshal(b, &decoded))
			assert.Equal(t, f, &decoded)
		})
	}
}

func TestFilterJSONKeepsEmptyLocations(t *testing.T) {
	f := &Filter{Selector: ".x", Hostnames: []hostname.Hash{}}

	b, err := json.Marshal(f)
	require.NoError(t, err)
	assert.Contains(t, string(b), `"hostnames":[]`)
	assert.Contains(t, string(b), `"entities":null`)

	var decoded Filter
	require.NoError(t, json.Unmarshal(b, &decoded))
	assert.NotNil(t, decoded.Hostnames)
	assert.Empty(t, decoded.Hostnames)
	assert.Nil(t, decoded.Entities)
	assert.True(t, decoded.HasHostnameConstraint())
}

func TestMaskString(t *testing.T) {
	assert.Equal(t, "none", MaskNone.String())
	assert.Equal(t, "unhide|class|simple", (MaskUnhide | MaskIsClassSelector | MaskIsSimple).String())
	assert.True(t, MaskUnhide.Has(MaskNone))
}
