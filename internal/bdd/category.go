package bdd

import (
	"fmt"
	"strings"
)

// DocumentCategory is the kind of requirements artifact. The set is closed.
type DocumentCategory string

const (
	CategoryBRD       DocumentCategory = "BRD"
	CategoryFRD       DocumentCategory = "FRD"
	CategoryUserStory DocumentCategory = "User Story"
	CategoryTestCase  DocumentCategory = "Test Case"
)

// Categories lists every DocumentCategory in display order.
var Categories = []DocumentCategory{CategoryBRD, CategoryFRD, CategoryUserStory, CategoryTestCase}

// Valid reports whether c is a member of the closed enumeration.
func (c DocumentCategory) Valid() bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

func (c DocumentCategory) String() string { return string(c) }

// ParseCategory accepts the wire values ("User Story") as well as the
// compact forms users type on a command line ("userstory", "user-story",
// "testcase"). Matching is case-insensitive.
func ParseCategory(s string) (DocumentCategory, error) {
	key := strings.ToLower(strings.NewReplacer(" ", "", "-", "", "_", "").Replace(strings.TrimSpace(s)))
	switch key {
	case "brd":
		return CategoryBRD, nil
	case "frd":
		return CategoryFRD, nil
	case "userstory":
		return CategoryUserStory, nil
	case "testcase":
		return CategoryTestCase, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownCategory, s)
}
