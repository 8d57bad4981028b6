package mapping

import "strings"

// Category is the closed set of output directories a series can be placed in.
type Category int

const (
	CategoryUnknown Category = iota
	CategoryFunctional
	CategoryFieldmap
	CategoryAnatomical
	CategoryDiffusion
)

var categoryDirs = map[Category]string{
	CategoryFunctional: "func",
	CategoryFieldmap:   "fmap",
	CategoryAnatomical: "anat",
	CategoryDiffusion:  "dwi",
}

// Categories lists every recognized category.
func Categories() []Category {
	return []Category{CategoryFunctional, CategoryFieldmap, CategoryAnatomical, CategoryDiffusion}
}

// ParseCategory resolves the directory name written in the translator.
func ParseCategory(value string) (Category, bool) {
	value = strings.TrimSpace(value)
	for c, dir := range categoryDirs {
		if dir == value {
			return c, true
		}
	}
	return CategoryUnknown, false
}

// Dir returns the output sub-directory for the category.
func (c Category) Dir() string {
	return categoryDirs[c]
}

func (c Category) String() string {
	if dir, ok := categoryDirs[c]; ok {
		return dir
	}
	return "unknown"
}
