package model

// Item is the domain model for a todo entry.
// Number is derived from list order; ID is the only identity.
type Item struct {
	ID          string `json:"id"`
	Number      int    `json:"number"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Done        bool   `json:"done"`
}

// State is a snapshot of the collection plus the session-only search filter.
type State struct {
	Items        []Item
	SearchFilter string
}

// Stats are the summary counts shown above a list.
type Stats struct {
	Total     int
	Active    int
	Completed int
}

// CountStats tallies done and pending items.
func CountStats(items []Item) Stats {
	st := Stats{Total: len(items)}
	for _, it := range items {
		if it.Done {
			st.Completed++
		} else {
			st.Active++
		}
	}
	return st
}
