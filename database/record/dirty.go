package record

import (
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

// IsDirty returns whether any field present in both the snapshot and the
// current attributes changed. Fields missing from either side are ignored.
func (r *Record) IsDirty() bool {
	for name, loaded := range r.snapshot {
		current, ok := r.attributes[name]
		if ok && !looseEqual(loaded, current) {
			return true
		}
	}
	return false
}

// IsAttributeDirty returns whether the given field changed since loading.
func (r *Record) IsAttributeDirty(name string) bool {
	loaded, ok := r.snapshot[name]
	if !ok {
		return false
	}
	current, ok := r.attributes[name]
	return ok && !looseEqual(loaded, current)
}

// DirtyFields returns the sorted names of all changed fields.
func (r *Record) DirtyFields() []string {
	var dirty []string
	for name, loaded := range r.snapshot {
		if current, ok := r.attributes[name]; ok && !looseEqual(loaded, current) {
			dirty = append(dirty, name)
		}
	}
	slices.Sort(dirty)
	return dirty
}

// Changes returns the current values of all changed fields.
func (r *Record) Changes() map[string]interface{} {
	changes := make(map[string]interface{})
	for _, name := range r.DirtyFields() {
		changes[name] = r.attributes[name]
	}
	return changes
}

// Fields returns the sorted names of all current attributes.
func (r *Record) Fields() []string {
	names := maps.Keys(r.attributes)
	slices.Sort(names)
	return names
}
