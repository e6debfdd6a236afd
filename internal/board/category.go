package board

// Category is one tag from the fixed board category set.
type Category string

const (
	CategoryWebsite  Category = "Website"
	CategoryApp      Category = "App"
	CategorySoftware Category = "Software"
	CategoryDesign   Category = "Design"
	CategoryPersonal Category = "Personal"
	CategoryOther    Category = "Other"
)

var categories = []Category{
	CategoryWebsite,
	CategoryApp,
	CategorySoftware,
	CategoryDesign,
	CategoryPersonal,
	CategoryOther,
}

var categoryColors = map[Category]string{
	CategoryWebsite:  "#b3d5fe",
	CategoryApp:      "#E4D0B4",
	CategorySoftware: "#E9FB91",
	CategoryDesign:   "#BDACFF",
	CategoryPersonal: "#F4ACD1",
}

const defaultCategoryColor = "#bbb"

// Categories returns the enumerated set in display order.
func Categories() []Category {
	out := make([]Category, len(categories))
	copy(out, categories)
	return out
}

// ParseCategory matches raw exactly against the enumerated set.
func ParseCategory(raw string) (Category, bool) {
	for _, c := range categories {
		if string(c) == raw {
			return c, true
		}
	}
	return "", false
}

// Known reports whether c belongs to the enumerated set.
func (c Category) Known() bool {
	_, ok := ParseCategory(string(c))
	return ok
}

// Color is the badge colour used when rendering c.
func (c Category) Color() string {
	if v, ok := categoryColors[c]; ok {
		return v
	}
	return defaultCategoryColor
}
