package thread

import "github.com/meridian-social/meridian/internal/core/domain/event"

// Node is one event in a reconstructed conversation tree. Replies keep the
// order in which they were registered under their parent.
type Node struct {
	Event   event.Event `json:"event"`
	Replies []*Node     `json:"replies,omitempty"`
}

// Size returns the number of events in the tree rooted at n.
func (n *Node) Size() int {
	if n == nil {
		return 0
	}
	total := 1
	for _, r := range n.Replies {
		total += r.Size()
	}
	return total
}

// Flatten returns the tree's events in depth-first order, root first.
func (n *Node) Flatten() []event.Event {
	if n == nil {
		return nil
	}
	out := []event.Event{n.Event}
	for _, r := range n.Replies {
		out = append(out, r.Flatten()...)
	}
	return out
}
