package optimizer

import (
	"sort"
	"time"
)

// SelectWindow picks the window that governs a customer on the given day:
// the active window with the highest priority, earliest start on ties.
func SelectWindow(windows []TimeWindow, day time.Weekday) (TimeWindow, bool) {
	var (
		best  TimeWindow
		found bool
	)
	for _, w := range windows {
		if !w.AppliesOn(day) {
			continue
		}
		if !found || w.Priority > best.Priority || (w.Priority == best.Priority && w.Start < best.Start) {
			best, found = w, true
		}
	}
	return best, found
}

// Schedule is the time-window ordered route.
type Schedule struct {
	Route []Location
	// Windows holds the governing window per location id, strict or not.
	Windows map[string]TimeWindow
	Strict  int
}

// ApplyTimeWindows reorders a route so that every stop with a strict window
// comes first, ascending by window start, followed by the remaining stops in
// their incoming order. START stays first and END stays last.
//
// windows is keyed by customer id.
func ApplyTimeWindows(route []Location, windows map[string][]TimeWindow, day time.Weekday) Schedule {
	s := Schedule{Windows: make(map[string]TimeWindow)}
	if len(route) == 0 {
		return s
	}

	var (
		head     []Location
		tail     []Location
		strict   []Location
		flexible []Location
	)
	for _, loc := range route {
		switch loc.ID {
		case StartID:
			head = append(head, loc)
			continue
		case EndID:
			tail = append(tail, loc)
			continue
		}

		w, ok := SelectWindow(windows[loc.CustomerID], day)
		if ok {
			s.Windows[loc.ID] = w
		}
		if ok && w.Strict {
			strict = append(strict, loc)
		} else {
			flexible = append(flexible, loc)
		}
	}

	sort.SliceStable(strict, func(a, b int) bool {
		return s.Windows[strict[a].ID].Start < s.Windows[strict[b].ID].Start
	})

	s.Route = make([]Location, 0, len(route))
	s.Route = append(s.Route, head...)
	s.Route = append(s.Route, strict...)
	s.Route = append(s.Route, flexible...)
	s.Route = append(s.Route, tail...)
	s.Strict = len(strict)
	return s
}
