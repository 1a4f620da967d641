package domain

// LocalizedNames maps a locale tag ("en", "ru", "uz") to a display name.
type LocalizedNames map[string]string

// Category is a node of the category tree.
type Category struct {
	ID       int            `json:"id"`
	ParentID *int           `json:"parentId,omitempty"`
	Names    LocalizedNames `json:"names"`
	Children []Category     `json:"children,omitempty"`
}

// Brand is an entry of the flat brand list.
type Brand struct {
	ID    int            `json:"id"`
	Names LocalizedNames `json:"names"`
}

// FacetCatalog holds the filterable dimensions supplied by the backend. It is
// read-mostly and only used for id to name lookups.
type FacetCatalog struct {
	Categories []Category `json:"categories"`
	Brands     []Brand    `json:"brands"`
}

// FindCategory searches the category tree depth first.
func (c FacetCatalog) FindCategory(id int) (Category, bool) {
	return findCategory(c.Categories, id)
}

func findCategory(nodes []Category, id int) (Category, bool) {
	for _, n := range nodes {
		if n.ID == id {
			return n, true
		}
		if found, ok := findCategory(n.Children, id); ok {
			return found, true
		}
	}
	return Category{}, false
}

// FindBrand looks a brand up in the flat list.
func (c FacetCatalog) FindBrand(id int) (Brand, bool) {
	for _, b := range c.Brands {
		if b.ID == id {
			return b, true
		}
	}
	return Brand{}, false
}

// IsEmpty reports whether the catalog has not been loaded or is empty.
func (c FacetCatalog) IsEmpty() bool {
	return len(c.Categories) == 0 && len(c.Brands) == 0
}
