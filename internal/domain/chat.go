package domain

// Turn roles as expected by the generation service.
const (
	RoleUser      = "user"
	RoleAssistant = "model"
)

// Part is a single text fragment of a turn.
type Part struct {
	Text string `json:"text"`
}

// Turn is one conversation turn in the wire shape replayed verbatim to the
// generation service. Insertion order is significant.
type Turn struct {
	Role  string `json:"role"`
	Parts []Part `json:"parts"`
}

// UserTurn builds a user turn from a plain message.
func UserTurn(text string) Turn {
	return Turn{Role: RoleUser, Parts: []Part{{Text: text}}}
}

// Text returns the concatenated part texts of a turn.
func (t Turn) Text() string {
	if len(t.Parts) == 1 {
		return t.Parts[0].Text
	}
	var s string
	for _, p := range t.Parts {
		s += p.Text
	}
	return s
}

// Source is a contextual link attached to an assistant reply.
type Source struct {
	Title string `json:"title"`
	URL   string `json:"url"`
}
