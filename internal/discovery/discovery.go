// Package discovery derives the set of profiles a viewer can see from the raw
// profile list, the active filters and the profiles already swiped.
package discovery

import (
	"f2f-dating-app/internal/geo"
	"f2f-dating-app/internal/models"
)

// Context selects which screen the candidates are computed for.
type Context string

const (
	// ContextDiscovery is the swipe deck; swiped profiles are hidden.
	ContextDiscovery Context = "discovery"
	// ContextBrowse is the map; swiped profiles stay visible.
	ContextBrowse Context = "browse"
)

// ParseContext maps a query value to a Context, defaulting to discovery.
func ParseContext(s string) Context {
	if s == string(ContextBrowse) {
		return ContextBrowse
	}
	return ContextDiscovery
}

// Candidates returns the visible profiles annotated with their distance from
// the viewer. Input order is preserved. The inputs are not modified.
func Candidates(viewer models.User, profiles []models.User, filters models.FilterState, swiped models.IDSet, ctx Context) []models.User {
	out := make([]models.User, 0, len(profiles))
	for _, p := range profiles {
		if p.ID == viewer.ID {
			continue
		}
		if ctx == ContextDiscovery && swiped.Has(p.ID) {
			continue
		}

		distance := geo.DistanceKm(viewer.Latitude, viewer.Longitude, p.Latitude, p.Longitude)
		if filters.Bounded() && distance > float64(filters.Radius) {
			continue
		}
		if filters.Gender != models.GenderAll && string(p.Gender) != string(filters.Gender) {
			continue
		}
		if p.Age < filters.MinAge || p.Age > filters.MaxAge {
			continue
		}
		if len(filters.Interests) > 0 && !p.Interests.Overlaps(filters.Interests) {
			continue
		}

		p.Distance = &distance
		out = append(out, p)
	}
	return out
}
