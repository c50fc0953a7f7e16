package core

import (
	"strings"
)

// Category identifies one of the fixed spending categories.
type Category string

const (
	Food          Category = "FOOD"
	Transport     Category = "TRANSPORT"
	Entertainment Category = "ENTERTAINMENT"
	Education     Category = "EDUCATION"
	Shopping      Category = "SHOPPING"
	Utilities     Category = "UTILITIES"
	Health        Category = "HEALTH"
	Housing       Category = "HOUSING"
	Personal      Category = "PERSONAL"
	Other         Category = "OTHER"
)

// CategoryInfo is the display metadata attached to a category.
type CategoryInfo struct {
	ID          Category `json:"name"`
	DisplayName string   `json:"displayName"`
	Color       string   `json:"color"`
}

var (
	catalog = []CategoryInfo{
		{Food, "Food & Dining", "#FF6384"},
		{Transport, "Transportation", "#36A2EB"},
		{Entertainment, "Entertainment", "#FFCE56"},
		{Education, "Education & Books", "#4BC0C0"},
		{Shopping, "Shopping", "#9966FF"},
		{Utilities, "Utilities & Bills", "#FF9F40"},
		{Health, "Health & Medical", "#FF6384"},
		{Housing, "Housing & Rent", "#C9CBCF"},
		{Personal, "Personal Care", "#7BC8A4"},
		{Other, "Other", "#999999"},
	}

	catalogIndex = indexCatalog(catalog)
)

func indexCatalog(infos []CategoryInfo) map[Category]CategoryInfo {
	idx := make(map[Category]CategoryInfo, len(infos))
	for _, info := range infos {
		idx[info.ID] = info
	}
	return idx
}

// Categories returns the full catalog in declaration order.
func Categories() []CategoryInfo {
	out := make([]CategoryInfo, len(catalog))
	copy(out, catalog)
	return out
}

// CategoryByID looks up the metadata for id.
func CategoryByID(id Category) (CategoryInfo, bool) {
	info, ok := catalogIndex[id]
	return info, ok
}

// ParseCategory accepts a category identifier in any letter case.
func ParseCategory(s string) (Category, error) {
	c := Category(strings.ToUpper(strings.TrimSpace(s)))
	if !c.Valid() {
		return "", ErrInvalidCategory
	}
	return c, nil
}

// Valid reports whether c belongs to the catalog.
func (c Category) Valid() bool {
	_, ok := catalogIndex[c]
	return ok
}

// DisplayName returns the human readable name, or "" for unknown categories.
func (c Category) DisplayName() string {
	return catalogIndex[c].DisplayName
}

// Color returns the hex display color, or "" for unknown categories.
func (c Category) Color() string {
	return catalogIndex[c].Color
}

func (c Category) String() string {
	return string(c)
}
