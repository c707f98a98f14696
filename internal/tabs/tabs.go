// Package tabs derives the global 1-based tab numbering used by every
// tab-addressing command. Numbers are computed from a fresh enumeration on
// each call and must never be stored across two interactions.
package tabs

import (
	"fmt"
	"net/url"
	"sort"
	"strings"
)

// Tab is one browser tab as reported by a backend.
type Tab struct {
	WindowID int    `json:"window_id"`
	Position int    `json:"position"`
	ID       string `json:"id"`
	Title    string `json:"title"`
	URL      string `json:"url"`
	Active   bool   `json:"active,omitempty"`
}

// Indexed is a Tab with its resolved global index.
type Indexed struct {
	Index int `json:"index"`
	Tab
}

// Domain returns the host of the tab URL without a leading "www.".
func (t Tab) Domain() string {
	return Domain(t.URL)
}

// Label renders the tab the way list_tabs shows it.
func (t Indexed) Label() string {
	d := t.Domain()
	if d == "" {
		return fmt.Sprintf("%d. %s", t.Index, t.Title)
	}
	return fmt.Sprintf("%d. %s (%s)", t.Index, t.Title, d)
}

// Domain extracts the host part of raw, or "" when it has none.
func Domain(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return ""
	}
	return strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
}

// IndexOutOfRangeError is returned when a global index does not address a
// live tab.
type IndexOutOfRangeError struct {
	Index int
	Count int
}

func (e *IndexOutOfRangeError) Error() string {
	if e.Count == 0 {
		return fmt.Sprintf("tab %d is out of range: no tabs are open", e.Index)
	}
	return fmt.Sprintf("tab %d is out of range [1, %d]", e.Index, e.Count)
}

// Number orders tabs window by window (ascending window ID, then position
// inside the window) and assigns continuous indices starting at 1.
func Number(list []Tab) []Indexed {
	sorted := make([]Tab, len(list))
	copy(sorted, list)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].WindowID != sorted[j].WindowID {
			return sorted[i].WindowID < sorted[j].WindowID
		}
		return sorted[i].Position < sorted[j].Position
	})

	out := make([]Indexed, len(sorted))
	for i, t := range sorted {
		out[i] = Indexed{Index: i + 1, Tab: t}
	}
	return out
}

// Lookup returns the tab at the given global index.
func Lookup(list []Indexed, index int) (Indexed, error) {
	if index < 1 || index > len(list) {
		return Indexed{}, &IndexOutOfRangeError{Index: index, Count: len(list)}
	}
	return list[index-1], nil
}

// CloseOrder removes duplicates from indices and sorts them highest first.
// Closing in this order keeps every remaining lower index valid, since a
// closure only shifts the tabs numbered after it.
func CloseOrder(indices []int) []int {
	seen := make(map[int]struct{}, len(indices))
	out := make([]int, 0, len(indices))
	for _, i := range indices {
		if _, ok := seen[i]; ok {
			continue
		}
		seen[i] = struct{}{}
		out = append(out, i)
	}
	sort.Sort(sort.Reverse(sort.IntSlice(out)))
	return out
}
