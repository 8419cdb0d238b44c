// Package matching decides when a like turns into a match.
package matching

import (
	"f2f-dating-app/internal/models"
)

// Minimum shared-interest counts. Swipe likes and accepting an incoming like
// are deliberately held to different bars.
const (
	SwipeMatchThreshold    = 1
	IncomingMatchThreshold = 3
)

// Policy is the match rule applied by one like flow.
type Policy struct {
	Name      string
	MinShared int
}

var (
	SwipePolicy    = Policy{Name: "swipe", MinShared: SwipeMatchThreshold}
	IncomingPolicy = Policy{Name: "incoming", MinShared: IncomingMatchThreshold}
)

type Outcome string

const (
	// OutcomeNone means the like was recorded without a visible result.
	OutcomeNone Outcome = "none"
	// OutcomeMatch means a new direct session was created for the target.
	OutcomeMatch Outcome = "match"
	// OutcomeNoCommonInterest means a pending incoming like was dropped
	// because the shared-interest bar was not met.
	OutcomeNoCommonInterest Outcome = "no_common_interest"
)

// Decisions is the viewer's swipe state for the current discovery pass.
type Decisions struct {
	Swiped   models.IDSet
	Incoming models.IDSet
}

// NewDecisions starts a discovery pass with the given pending incoming likes.
func NewDecisions(incoming ...string) *Decisions {
	return &Decisions{Swiped: models.NewIDSet(), Incoming: models.NewIDSet(incoming...)}
}

// Sessions is the part of the chat store the engine needs.
type Sessions interface {
	Exists(id string) bool
	Ensure(id string, typ models.SessionType, eventID string) bool
}

type Result struct {
	Outcome Outcome
	Common  models.TagSet
	// WasIncoming reports whether the target had liked the viewer.
	WasIncoming bool
	// AlreadyMatched reports whether a session with the target existed
	// before the like.
	AlreadyMatched bool
}

// ProcessLike records a like of target by viewer under policy p.
func ProcessLike(p Policy, d *Decisions, sessions Sessions, viewer, target models.User) Result {
	d.Swiped.Add(target.ID)

	common := viewer.Interests.Intersect(target.Interests)
	res := Result{
		Outcome:        OutcomeNone,
		Common:         common,
		WasIncoming:    d.Incoming.Has(target.ID),
		AlreadyMatched: sessions.Exists(target.ID),
	}

	switch {
	case res.AlreadyMatched:
	case len(common) >= p.MinShared:
		if sessions.Ensure(target.ID, models.SessionDirect, "") {
			res.Outcome = OutcomeMatch
		}
	case res.WasIncoming:
		res.Outcome = OutcomeNoCommonInterest
	}

	d.Incoming.Remove(target.ID)
	return res
}

// Pass records a left swipe.
func Pass(d *Decisions, targetID string) {
	d.Swiped.Add(targetID)
}

// RejectIncoming drops a pending incoming like; it also counts as a pass.
func RejectIncoming(d *Decisions, targetID string) {
	d.Incoming.Remove(targetID)
	d.Swiped.Add(targetID)
}

// ResetSwipes starts a new discovery pass.
func ResetSwipes(d *Decisions) {
	d.Swiped = models.NewIDSet()
}
