// Package language determines the active language for a request and
// describes the languages a deployment supports.
//
// Different multilingual setups expose overlapping but inconsistent signals,
// and admin-side language switches are frequently desynchronized across
// sources within one request. The resolver therefore tries an ordered list
// of sources and takes the first usable answer instead of trusting any
// single signal.
package language

import (
	"golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

// Language describes one supported language for UI display.
type Language struct {
	Code    string `json:"code"`
	Name    string `json:"name"`
	Default bool   `json:"default"`
	Active  bool   `json:"active"`
}

// Normalize reduces a raw language signal to a base code ("en-US" -> "en").
// Unparseable or wildcard values normalize to "".
func Normalize(code string) string {
	if code == "" || code == "all" || code == "*" {
		return ""
	}

	tag, err := language.Parse(code)
	if err != nil {
		return ""
	}

	base, conf := tag.Base()
	if conf == language.No {
		return ""
	}
	return base.String()
}

// displayName returns the language's name in its own language, falling back
// to the code when the tag has no known name.
func displayName(code string) string {
	tag, err := language.Parse(code)
	if err != nil {
		return code
	}

	name := display.Self.Name(tag)
	if name == "" {
		return code
	}
	return name
}
