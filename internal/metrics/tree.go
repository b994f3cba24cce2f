package metrics

import "sort"

// ObjectTree is the merged result of parsing every input document:
// categories to object names to built objects. Pings live under the
// reserved "pings" category.
type ObjectTree struct {
	categories map[string]map[string]Object
}

// NewObjectTree returns an empty tree.
func NewObjectTree() *ObjectTree {
	return &ObjectTree{categories: make(map[string]map[string]Object)}
}

// Insert files obj under category/name, overwriting any previous entry.
// Duplicate handling is the caller's concern.
func (t *ObjectTree) Insert(category, name string, obj Object) {
	cat, ok := t.categories[category]
	if !ok {
		cat = make(map[string]Object)
		t.categories[category] = cat
	}
	cat[name] = obj
}

// Lookup returns the object filed under category/name.
func (t *ObjectTree) Lookup(category, name string) (Object, bool) {
	obj, ok := t.categories[category][name]
	return obj, ok
}

// Categories returns every category name, sorted.
func (t *ObjectTree) Categories() []string {
	names := make([]string, 0, len(t.categories))
	for name := range t.categories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// MetricCategories returns every category name except the pings bucket,
// sorted.
func (t *ObjectTree) MetricCategories() []string {
	names := make([]string, 0, len(t.categories))
	for name := range t.categories {
		if name == PingsCategory {
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ObjectNames returns the object names in one category, sorted.
func (t *ObjectTree) ObjectNames(category string) []string {
	cat := t.categories[category]
	names := make([]string, 0, len(cat))
	for name := range cat {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Objects returns the objects in one category ordered by name.
func (t *ObjectTree) Objects(category string) []Object {
	names := t.ObjectNames(category)
	objs := make([]Object, 0, len(names))
	for _, name := range names {
		objs = append(objs, t.categories[category][name])
	}
	return objs
}

// Pings returns every ping ordered by name.
func (t *ObjectTree) Pings() []*Ping {
	var pings []*Ping
	for _, obj := range t.Objects(PingsCategory) {
		if ping, ok := obj.(*Ping); ok {
			pings = append(pings, ping)
		}
	}
	return pings
}

// Metrics returns every metric object across all categories, ordered by
// category then name.
func (t *ObjectTree) Metrics() []MetricObject {
	var out []MetricObject
	for _, category := range t.MetricCategories() {
		for _, obj := range t.Objects(category) {
			if m, ok := obj.(MetricObject); ok {
				out = append(out, m)
			}
		}
	}
	return out
}

// Len counts every object in the tree.
func (t *ObjectTree) Len() int {
	n := 0
	for _, cat := range t.categories {
		n += len(cat)
	}
	return n
}

// IsEmpty reports whether the tree holds no objects at all.
func (t *ObjectTree) IsEmpty() bool { return t.Len() == 0 }
