package chat

import "f2f-dating-app/internal/models"

// Groups is the list-view projection of the sessions.
type Groups struct {
	NewMatches []models.ChatSession `json:"new_matches"`
	Direct     []models.ChatSession `json:"direct"`
	Events     []models.ChatSession `json:"events"`
}

// Group splits sessions into empty direct sessions, direct sessions with
// messages and event sessions, keeping the input order inside each group.
func Group(sessions []models.ChatSession) Groups {
	g := Groups{
		NewMatches: []models.ChatSession{},
		Direct:     []models.ChatSession{},
		Events:     []models.ChatSession{},
	}
	for _, cs := range sessions {
		switch {
		case cs.Type == models.SessionEvent:
			g.Events = append(g.Events, cs)
		case len(cs.Messages) == 0:
			g.NewMatches = append(g.NewMatches, cs)
		default:
			g.Direct = append(g.Direct, cs)
		}
	}
	return g
}
