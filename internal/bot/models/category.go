package models

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/dmitrijs2005/filestash/internal/common"
)

// MaxCategoryNameBytes keeps "add_files_<name>" and "page_<name>_<n>"
// within the 64-byte callback data limit.
const MaxCategoryNameBytes = 48

// NormalizeCategoryName trims user input and checks that the result can be
// used both as a button token and as a document field name.
func NormalizeCategoryName(raw string) (string, error) {
	name := strings.TrimSpace(raw)

	switch {
	case name == "":
		return "", fmt.Errorf("%w: empty name", common.ErrInvalidCategoryName)
	case len(name) > MaxCategoryNameBytes:
		return "", fmt.Errorf("%w: longer than %d bytes", common.ErrInvalidCategoryName, MaxCategoryNameBytes)
	case !utf8.ValidString(name):
		return "", fmt.Errorf("%w: not valid UTF-8", common.ErrInvalidCategoryName)
	case strings.ContainsAny(name, ".\n\r\x00"):
		return "", fmt.Errorf("%w: must not contain dots or line breaks", common.ErrInvalidCategoryName)
	case strings.HasPrefix(name, "$"):
		return "", fmt.Errorf("%w: must not start with $", common.ErrInvalidCategoryName)
	}
	return name, nil
}
