package cosmetic

import "errors"

// Errors returned by Parse. The set is closed; every failure to compile a
// rule is exactly one of these.
var (
	ErrPunycode                     = errors.New("punycode error")
	ErrInvalidActionSpecifier       = errors.New("invalid action specifier")
	ErrUnsupportedSyntax            = errors.New("unsupported syntax")
	ErrMissingSharp                 = errors.New("missing sharp")
	ErrInvalidCSSStyle              = errors.New("invalid css style")
	ErrInvalidCSSSelector           = errors.New("invalid css selector")
	ErrGenericUnhide                = errors.New("generic unhide")
	ErrGenericScriptInject          = errors.New("generic script inject")
	ErrGenericAction                = errors.New("procedural and action filters cannot be generic")
	ErrDoubleNegation               = errors.New("double negation")
	ErrEmptyRule                    = errors.New("empty rule")
	ErrHTMLFilteringUnsupported     = errors.New("html filtering is unsupported")
	ErrLocationModifiersUnsupported = errors.New("location modifiers are unsupported")
)

// AllErrors returns every error Parse can return
func AllErrors() []error {
	return []error{
		ErrPunycode,
		ErrInvalidActionSpecifier,
		ErrUnsupportedSyntax,
		ErrMissingSharp,
		ErrInvalidCSSStyle,
		ErrInvalidCSSSelector,
		ErrGenericUnhide,
		ErrGenericScriptInject,
		ErrGenericAction,
		ErrDoubleNegation,
		ErrEmptyRule,
		ErrHTMLFilteringUnsupported,
		ErrLocationModifiersUnsupported,
	}
}
