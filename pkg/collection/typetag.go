package collection

import (
	"fmt"
	"regexp"
	"strings"
)

// MaxTypeTagLength matches the width of the catalog's type_tag column.
const MaxTypeTagLength = 200

// LegacySeparatorPlaceholder replaced the "\" namespace separator in type
// tags written by older catalog writers.
const LegacySeparatorPlaceholder = "||"

var typeTagPattern = regexp.MustCompile(`^[a-z][a-z0-9._-]*$`)

// ValidateTypeTag checks that tag is a stable identifier that can be stored
// verbatim: lower-case letters, digits, '.', '_' and '-', starting with a letter.
func ValidateTypeTag(tag string) error {
	switch {
	case tag == "":
		return &TypeError{Tag: tag, Reason: "type tag is empty"}
	case len(tag) > MaxTypeTagLength:
		return &TypeError{Tag: tag, Reason: fmt.Sprintf("type tag longer than %d bytes", MaxTypeTagLength)}
	case !typeTagPattern.MatchString(tag):
		return &TypeError{Tag: tag, Reason: "type tag must match [a-z][a-z0-9._-]*"}
	}
	return nil
}

// DecodeTypeTag restores the legacy separator placeholder. Current tags
// never contain it and pass through unchanged.
func DecodeTypeTag(stored string) string {
	return strings.ReplaceAll(stored, LegacySeparatorPlaceholder, `\`)
}
