package event

// Tag is an ordered sequence of strings. The first element names the tag,
// the second carries its primary value.
type Tag []string

// Name returns the tag's name, or "" for an empty tag.
func (t Tag) Name() string {
	if len(t) == 0 {
		return ""
	}
	return t[0]
}

// Value returns the tag's primary value, or "" when absent.
func (t Tag) Value() string {
	if len(t) < 2 {
		return ""
	}
	return t[1]
}

// marker returns the positional marker of an event reference tag
// ("root", "reply" or "mention"), or "" when unmarked.
func (t Tag) marker() string {
	if len(t) < 4 {
		return ""
	}
	return t[3]
}

// Event is a protocol event as cached locally. Events are content-addressed:
// a given ID never maps to a different value, so re-receiving a known ID at
// most refreshes cache bookkeeping.
type Event struct {
	ID        string `json:"id"`
	PubKey    string `json:"pubkey"`
	CreatedAt int64  `json:"created_at"`
	Kind      int    `json:"kind"`
	Tags      []Tag  `json:"tags"`
	Content   string `json:"content"`
}

// TagValue returns the primary value of the first tag named name.
func (e *Event) TagValue(name string) (string, bool) {
	for _, t := range e.Tags {
		if t.Name() == name {
			return t.Value(), true
		}
	}
	return "", false
}

// eventRefs returns the event's "e" tags, excluding mention references.
func (e *Event) eventRefs() []Tag {
	var refs []Tag
	for _, t := range e.Tags {
		if t.Name() != "e" || t.Value() == "" {
			continue
		}
		if t.marker() == "mention" {
			continue
		}
		refs = append(refs, t)
	}
	return refs
}

// ReplyParentID resolves the id of the event this one replies to.
// Marked references win: a "reply" marker names the parent directly, and a
// sole "root" marker means the event replies to the thread root. Unmarked
// tags fall back to positional convention, where the last reference is the
// parent. ok is false for events that start a thread.
func (e *Event) ReplyParentID() (string, bool) {
	refs := e.eventRefs()
	if len(refs) == 0 {
		return "", false
	}
	for _, t := range refs {
		if t.marker() == "reply" {
			return t.Value(), true
		}
	}
	for _, t := range refs {
		if t.marker() == "root" {
			return t.Value(), true
		}
	}
	return refs[len(refs)-1].Value(), true
}

// ThreadRootID resolves the root of the conversation this event belongs to.
// A "root" marker wins, then the first positional reference; an event with no
// event references is its own root.
func (e *Event) ThreadRootID() string {
	refs := e.eventRefs()
	for _, t := range refs {
		if t.marker() == "root" {
			return t.Value()
		}
	}
	if len(refs) > 0 {
		return refs[0].Value()
	}
	return e.ID
}
