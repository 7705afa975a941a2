package session

// History is a fixed-capacity ring of the most recent partial texts. When
// full, pushing evicts the oldest entry.
type History struct {
	items []string
	start int
	n     int
}

// NewHistory creates a history holding up to capacity entries (minimum 1).
func NewHistory(capacity int) *History {
	if capacity < 1 {
		capacity = 1
	}
	return &History{items: make([]string, capacity)}
}

// Push appends text, evicting the oldest entry when full.
func (h *History) Push(text string) {
	if h.n < len(h.items) {
		h.items[(h.start+h.n)%len(h.items)] = text
		h.n++
		return
	}
	h.items[h.start] = text
	h.start = (h.start + 1) % len(h.items)
}

// Len returns the number of stored entries.
func (h *History) Len() int {
	return h.n
}

// Values returns the stored entries, oldest first.
func (h *History) Values() []string {
	out := make([]string, h.n)
	for i := range out {
		out[i] = h.items[(h.start+i)%len(h.items)]
	}
	return out
}

// Distinct returns how many different texts are stored.
func (h *History) Distinct() int {
	seen := make(map[string]struct{}, h.n)
	for i := 0; i < h.n; i++ {
		seen[h.items[(h.start+i)%len(h.items)]] = struct{}{}
	}
	return len(seen)
}

// Stable reports whether the stored texts hold at most one distinct value.
func (h *History) Stable() bool {
	return h.Distinct() <= 1
}

// Clear empties the history without reallocating.
func (h *History) Clear() {
	for i := range h.items {
		h.items[i] = ""
	}
	h.start = 0
	h.n = 0
}
