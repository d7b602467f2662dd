package catalog

import (
	"fmt"
	"sort"
	"sync"
)

var (
	layouts   = make(map[string]Layout)
	layoutsMu sync.RWMutex
)

// RegisterLayout adds a layout to the registry.
// Panics if the layout is invalid or its name is already registered.
func RegisterLayout(l Layout) {
	if err := l.Validate(); err != nil {
		panic(err.Error())
	}

	layoutsMu.Lock()
	defer layoutsMu.Unlock()

	if _, exists := layouts[l.Name]; exists {
		panic(fmt.Sprintf("layout already registered: %s", l.Name))
	}
	layouts[l.Name] = l
}

// RegisterLayouts adds every layout in ls, or none of them. It fails if any
// layout is invalid or its name is taken, either in the registry or
// earlier in ls.
func RegisterLayouts(ls ...Layout) error {
	for _, l := range ls {
		if err := l.Validate(); err != nil {
			return err
		}
	}

	layoutsMu.Lock()
	defer layoutsMu.Unlock()

	seen := make(map[string]bool, len(ls))
	for _, l := range ls {
		if _, exists := layouts[l.Name]; exists || seen[l.Name] {
			return fmt.Errorf("layout already registered: %s", l.Name)
		}
		seen[l.Name] = true
	}
	for _, l := range ls {
		layouts[l.Name] = l
	}
	return nil
}

// LookupLayout returns a layout by name.
func LookupLayout(name string) (Layout, bool) {
	layoutsMu.RLock()
	defer layoutsMu.RUnlock()

	l, ok := layouts[name]
	return l, ok
}

// Layouts returns all registered layouts sorted by name.
func Layouts() []Layout {
	layoutsMu.RLock()
	defer layoutsMu.RUnlock()

	out := make([]Layout, 0, len(layouts))
	for _, l := range layouts {
		out = append(out, l)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// ClearLayouts removes all registered layouts.
// Primarily useful for testing.
func ClearLayouts() {
	layoutsMu.Lock()
	defer layoutsMu.Unlock()
	layouts = make(map[string]Layout)
}
