package diagram

import "github.com/inabajunmr/autosequence/internal/contenttype"

// FilterState is a viewer's filter selection. Nil slices mean "no filtering
// on that axis"; empty non-nil slices select nothing. Viewer-local, never
// persisted, preserved across live refreshes of the same viewer.
type FilterState struct {
	SelectedDomains []string
	SelectedTypes   []string

	// HasDomains / HasTypes distinguish an absent selection from an
	// explicitly empty one after JSON decoding.
	HasDomains bool
	HasTypes   bool
}

// DefaultFilterState mirrors the viewer page's initial selection: no domains
// selected, types limited to xhr and document.
func DefaultFilterState() FilterState {
	return FilterState{
		SelectedDomains: []string{},
		SelectedTypes:   []string{string(contenttype.XHR), string(contenttype.Document)},
		HasDomains:      true,
		HasTypes:        true,
	}
}

// Filter converts the state into a compile-time Filter.
func (f FilterState) Filter() Filter {
	var out Filter
	if f.HasDomains {
		out.Domains = make(map[string]struct{}, len(f.SelectedDomains))
		for _, d := range f.SelectedDomains {
			out.Domains[d] = struct{}{}
		}
	}
	if f.HasTypes {
		out.Types = make(map[contenttype.Category]struct{}, len(f.SelectedTypes))
		for _, tp := range f.SelectedTypes {
			out.Types[contenttype.Category(tp)] = struct{}{}
		}
	}
	return out
}
