package cosmetic

import (
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"
)

// wordClass is a Unicode aware equivalent of \w
const wordClass = `\p{L}\p{M}\p{Nd}\p{Nl}\p{Pc}\x{200C}\x{200D}`

var (
	rePlainSelector        = regexp.MustCompile(`^[#.][` + wordClass + `\\-]+`)
	rePlainSelectorEscaped = regexp.MustCompile(`^[#.](?:\\[0-9A-Fa-f]+ |\\.|[` + wordClass + `]|-)+`)
	reEscapeSequence       = regexp.MustCompile(`\\([0-9A-Fa-f]+ |.)`)
)

// keyFromSelector returns the leading class or id token of selector,
// including its `.` or `#`, with CSS escapes decoded.
//
// selector must start with `.` or `#`.
func keyFromSelector(selector string) (string, error) {
	key := rePlainSelector.FindString(selector)
	if key == "" {
		return "", ErrInvalidCSSSelector
	}
	if strings.IndexByte(key, '\\') == -1 {
		return key, nil
	}

	escaped := rePlainSelectorEscaped.FindString(selector)
	if escaped == "" {
		return "", ErrInvalidCSSSelector
	}

	var b strings.Builder
	b.Grow(len(escaped))
	last := 0
	for _, m := range reEscapeSequence.FindAllStringSubmatchIndex(escaped, -1) {
		b.WriteString(escaped[last:m[0]])
		last = m[1]

		seq := escaped[m[2]:m[3]]
		if utf8.RuneCountInString(seq) == 1 {
			b.WriteString(seq)
			continue
		}

		// hex escape, terminated by a single space
		cp, err := strconv.ParseUint(seq[:len(seq)-1], 16, 32)
		if err != nil {
			return "", ErrInvalidCSSSelector
		}
		r := rune(cp)
		if !utf8.ValidRune(r) {
			return "", ErrInvalidCSSSelector
		}
		b.WriteRune(r)
	}
	b.WriteString(escaped[last:])

	return b.String(), nil
}
