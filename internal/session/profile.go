package session

import (
	"context"
	"fmt"

	"f2f-dating-app/internal/models"
)

// ProfilePatch carries the editable profile fields; nil fields are kept.
type ProfilePatch struct {
	Name      *string  `json:"name" binding:"omitempty,min=1,max=100"`
	Age       *int     `json:"age" binding:"omitempty,min=18,max=99"`
	Bio       *string  `json:"bio" binding:"omitempty,max=500"`
	Interests []string `json:"interests" binding:"omitempty,min=2"`
	City      *string  `json:"city"`
	PhotoURL  *string  `json:"photo_url"`
}

func (p ProfilePatch) apply(u models.User) models.User {
	if p.Name != nil {
		u.Name = *p.Name
	}
	if p.Age != nil {
		u.Age = *p.Age
	}
	if p.Bio != nil {
		u.Bio = *p.Bio
	}
	if p.Interests != nil {
		u.Interests = models.NewTagSet(p.Interests...)
	}
	if p.City != nil {
		u.City = *p.City
	}
	if p.PhotoURL != nil {
		u.PhotoURL = *p.PhotoURL
	}
	return u
}

// UpdateProfile writes the patched profile and installs it once stored.
func (c *Coordinator) UpdateProfile(ctx context.Context, patch ProfilePatch) (models.User, error) {
	cur, err := c.Viewer(ctx)
	if err != nil {
		return models.User{}, err
	}
	next := patch.apply(cur)

	wctx, cancel := c.bounded(ctx)
	defer cancel()
	if err := c.deps.Profiles.Update(wctx, next); err != nil {
		return models.User{}, fmt.Errorf("update profile: %w", err)
	}
	return exec(ctx, c, func() (models.User, error) {
		// Keep a location that arrived while the write was in flight.
		next.Latitude, next.Longitude = c.viewer.Latitude, c.viewer.Longitude
		c.viewer = next
		return next, nil
	})
}

// UpdateLocation moves the viewer right away. The write is best-effort and
// failures are only logged.
func (c *Coordinator) UpdateLocation(ctx context.Context, lat, lng float64) error {
	return c.do(ctx, func() error {
		c.viewer.Latitude, c.viewer.Longitude = lat, lng
		viewerID := c.viewerID
		c.remote("update location", func(ctx context.Context) error {
			return c.deps.Profiles.UpdateLocation(ctx, viewerID, lat, lng)
		}, nil)
		return nil
	})
}

// Icebreaker suggests an opening line for targetID.
func (c *Coordinator) Icebreaker(ctx context.Context, targetID string) (string, error) {
	me, other, err := c.pair(ctx, targetID)
	if err != nil {
		return "", err
	}
	actx, cancel := c.bounded(ctx)
	defer cancel()
	return c.deps.Assistant.Icebreaker(actx, me, other), nil
}

// Compatibility summarizes how well the viewer and targetID fit.
func (c *Coordinator) Compatibility(ctx context.Context, targetID string) (string, error) {
	me, other, err := c.pair(ctx, targetID)
	if err != nil {
		return "", err
	}
	actx, cancel := c.bounded(ctx)
	defer cancel()
	return c.deps.Assistant.Compatibility(actx, me, other), nil
}

func (c *Coordinator) pair(ctx context.Context, targetID string) (models.User, models.User, error) {
	type both struct{ me, other models.User }
	p, err := exec(ctx, c, func() (both, error) {
		other, ok := c.profile(targetID)
		if !ok {
			return both{}, ErrProfileNotFound
		}
		return both{c.viewer, other}, nil
	})
	return p.me, p.other, err
}
