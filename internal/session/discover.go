package session

import (
	"context"
	"fmt"

	"f2f-dating-app/internal/discovery"
	"f2f-dating-app/internal/matching"
	"f2f-dating-app/internal/models"

	"github.com/sirupsen/logrus"
)

// Candidate is a visible profile with its online badge.
type Candidate struct {
	models.User
	Online bool `json:"online"`
}

type Direction string

const (
	SwipeLeft  Direction = "left"
	SwipeRight Direction = "right"
)

type LikeResult struct {
	Outcome matching.Outcome `json:"outcome"`
	Common  models.TagSet    `json:"common"`
	Target  models.User      `json:"target"`
}

type SwipeResult struct {
	Direction Direction   `json:"direction"`
	TargetID  string      `json:"target_id"`
	Like      *LikeResult `json:"like,omitempty"`
}

// IncomingLike is a profile that liked the viewer and waits for review.
type IncomingLike struct {
	models.User
	Common models.TagSet `json:"common"`
	// Matchable reports whether accepting would meet the incoming-like bar.
	Matchable bool `json:"matchable"`
	Online    bool `json:"online"`
}

func (c *Coordinator) Viewer(ctx context.Context) (models.User, error) {
	return exec(ctx, c, func() (models.User, error) {
		return c.viewer, nil
	})
}

func (c *Coordinator) Candidates(ctx context.Context, dctx discovery.Context) ([]Candidate, error) {
	return exec(ctx, c, func() ([]Candidate, error) {
		visible := discovery.Candidates(c.viewer, c.profiles, c.filters, c.decisions.Swiped, dctx)
		out := make([]Candidate, len(visible))
		for i, p := range visible {
			out[i] = Candidate{User: p, Online: c.isOnline(p.ID)}
		}
		return out, nil
	})
}

// RefreshProfiles re-reads the profile list.
func (c *Coordinator) RefreshProfiles(ctx context.Context) error {
	rctx, cancel := c.bounded(ctx)
	defer cancel()
	profiles, err := c.deps.Profiles.ListExcept(rctx, c.viewerID)
	if err != nil {
		return fmt.Errorf("list profiles: %w", err)
	}
	return c.do(ctx, func() error {
		c.profiles = profiles
		return nil
	})
}

func (c *Coordinator) Filters(ctx context.Context) (models.FilterState, error) {
	return exec(ctx, c, func() (models.FilterState, error) {
		return c.filters, nil
	})
}

func (c *Coordinator) SetFilters(ctx context.Context, f models.FilterState) (models.FilterState, error) {
	f.Interests = models.NewTagSet(f.Interests...)
	if err := f.Validate(); err != nil {
		return models.FilterState{}, err
	}
	return c.updateFilters(ctx, func(*models.FilterState) models.FilterState { return f })
}

// ResetFilters restores the default filters.
func (c *Coordinator) ResetFilters(ctx context.Context) (models.FilterState, error) {
	return c.updateFilters(ctx, func(*models.FilterState) models.FilterState { return models.DefaultFilters() })
}

// ExpandRadius turns distance filtering off.
func (c *Coordinator) ExpandRadius(ctx context.Context) (models.FilterState, error) {
	return c.updateFilters(ctx, func(cur *models.FilterState) models.FilterState {
		next := *cur
		next.Radius = models.UnboundedRadius
		return next
	})
}

func (c *Coordinator) updateFilters(ctx context.Context, fn func(*models.FilterState) models.FilterState) (models.FilterState, error) {
	return exec(ctx, c, func() (models.FilterState, error) {
		c.filters = fn(&c.filters)
		return c.filters, nil
	})
}

// Swipe acts on the first candidate of the discovery deck.
func (c *Coordinator) Swipe(ctx context.Context, dir Direction) (SwipeResult, error) {
	return exec(ctx, c, func() (SwipeResult, error) {
		deck := discovery.Candidates(c.viewer, c.profiles, c.filters, c.decisions.Swiped, discovery.ContextDiscovery)
		if len(deck) == 0 {
			return SwipeResult{}, ErrNoCandidates
		}
		target := deck[0]
		res := SwipeResult{Direction: dir, TargetID: target.ID}
		if dir == SwipeRight {
			like := c.like(matching.SwipePolicy, target)
			res.Like = &like
			return res, nil
		}
		matching.Pass(c.decisions, target.ID)
		return res, nil
	})
}

// Like likes targetID from the discovery deck or the map.
func (c *Coordinator) Like(ctx context.Context, targetID string) (LikeResult, error) {
	return exec(ctx, c, func() (LikeResult, error) {
		target, ok := c.profile(targetID)
		if !ok {
			return LikeResult{}, ErrProfileNotFound
		}
		return c.like(matching.SwipePolicy, target), nil
	})
}

// AcceptIncoming accepts a pending like from targetID.
func (c *Coordinator) AcceptIncoming(ctx context.Context, targetID string) (LikeResult, error) {
	return exec(ctx, c, func() (LikeResult, error) {
		if !c.decisions.Incoming.Has(targetID) {
			return LikeResult{}, ErrNotIncoming
		}
		target, ok := c.profile(targetID)
		if !ok {
			return LikeResult{}, ErrProfileNotFound
		}
		return c.like(matching.IncomingPolicy, target), nil
	})
}

// RejectIncoming drops a pending like from targetID.
func (c *Coordinator) RejectIncoming(ctx context.Context, targetID string) error {
	return c.do(ctx, func() error {
		matching.RejectIncoming(c.decisions, targetID)
		c.resolveLike(targetID)
		return nil
	})
}

// ResetSwipes starts a new discovery pass.
func (c *Coordinator) ResetSwipes(ctx context.Context) error {
	return c.do(ctx, func() error {
		matching.ResetSwipes(c.decisions)
		return nil
	})
}

// IncomingLikes lists pending likes in profile-list order.
func (c *Coordinator) IncomingLikes(ctx context.Context) ([]IncomingLike, error) {
	return exec(ctx, c, func() ([]IncomingLike, error) {
		out := []IncomingLike{}
		for _, p := range c.profiles {
			if !c.decisions.Incoming.Has(p.ID) {
				continue
			}
			common := c.viewer.Interests.Intersect(p.Interests)
			out = append(out, IncomingLike{
				User:      p,
				Common:    common,
				Matchable: len(common) >= matching.IncomingPolicy.MinShared,
				Online:    c.isOnline(p.ID),
			})
		}
		return out, nil
	})
}

func (c *Coordinator) like(p matching.Policy, target models.User) LikeResult {
	res := matching.ProcessLike(p, c.decisions, c.chats, c.viewer, target)
	c.log.WithFields(logrus.Fields{
		"policy":  p.Name,
		"target":  target.ID,
		"outcome": res.Outcome,
	}).Debug("like processed")

	switch res.Outcome {
	case matching.OutcomeMatch:
		c.emit(SignalMatch, MatchPayload{User: target, Common: res.Common})
		c.notify(target.ID, "New match", c.viewer.Name+" matched with you", map[string]string{
			"type": string(SignalMatch), "user_id": c.viewerID,
		})
	case matching.OutcomeNoCommonInterest:
		c.emit(SignalNoCommonInterest, UserPayload{UserID: target.ID})
	}

	switch {
	case res.WasIncoming:
		c.resolveLike(target.ID)
	case res.AlreadyMatched:
	default:
		c.recordLike(target.ID, res.Outcome != matching.OutcomeMatch)
	}
	return LikeResult{Outcome: res.Outcome, Common: res.Common, Target: target}
}

func (c *Coordinator) recordLike(targetID string, announce bool) {
	if c.deps.Likes == nil {
		return
	}
	viewerID := c.viewerID
	c.remote("record like", func(ctx context.Context) error {
		return c.deps.Likes.Record(ctx, viewerID, targetID)
	}, nil)
	if announce {
		c.notify(targetID, "New like", "Someone liked your profile", map[string]string{"type": "like"})
	}
}

func (c *Coordinator) resolveLike(likerID string) {
	if c.deps.Likes == nil {
		return
	}
	viewerID := c.viewerID
	c.remote("resolve like", func(ctx context.Context) error {
		return c.deps.Likes.Resolve(ctx, likerID, viewerID)
	}, nil)
}
