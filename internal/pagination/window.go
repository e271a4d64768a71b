// Package pagination computes page windows for list screens: page 1, the
// pages around the current one, the last page, and ellipsis markers for the
// gaps in between.
package pagination

import (
	"encoding/json"
	"strconv"
)

const (
	DefaultRadius = 2
	Ellipsis      = "..."
)

// Entry is either a page number or an ellipsis marker.
type Entry struct {
	Page     int
	Ellipsis bool
}

// PageEntry is the entry for page n.
func PageEntry(n int) Entry { return Entry{Page: n} }

// EllipsisEntry marks a gap between pages.
func EllipsisEntry() Entry { return Entry{Ellipsis: true} }

func (e Entry) String() string {
	if e.Ellipsis {
		return Ellipsis
	}
	return strconv.Itoa(e.Page)
}

// MarshalJSON encodes pages as numbers and the marker as "...".
func (e Entry) MarshalJSON() ([]byte, error) {
	if e.Ellipsis {
		return json.Marshal(Ellipsis)
	}
	return json.Marshal(e.Page)
}

func (e *Entry) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		if s != Ellipsis {
			return &json.UnsupportedValueError{Str: s}
		}
		*e = EllipsisEntry()
		return nil
	}
	var n int
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*e = PageEntry(n)
	return nil
}

// Window returns the page indicators for a pagination bar. It does not clamp
// current; navigation outside [1, total] is the caller's concern. A total
// below 1 is treated as 1 and a negative radius as 0.
func Window(current, total, radius int) []Entry {
	if total < 1 {
		total = 1
	}
	if radius < 0 {
		radius = 0
	}

	lo := max(2, current-radius)
	hi := min(total-1, current+radius)

	out := make([]Entry, 0, 2*radius+5)
	out = append(out, PageEntry(1))
	if lo <= hi {
		if lo > 2 {
			out = append(out, EllipsisEntry())
		}
		for i := lo; i <= hi; i++ {
			out = append(out, PageEntry(i))
		}
		if hi < total-1 {
			out = append(out, EllipsisEntry())
		}
	}
	if total > 1 {
		out = append(out, PageEntry(total))
	}
	return out
}
