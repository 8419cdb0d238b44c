package discovery

import (
	"testing"

	"f2f-dating-app/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	centerLat = 55.7558
	centerLng = 37.6173
)

func viewer() models.User {
	return models.User{ID: "me", Age: 30, Gender: models.GenderMale, Latitude: centerLat, Longitude: centerLng,
		Interests: models.NewTagSet("Gym", "Reading")}
}

// profile places a user roughly km kilometres north of the center.
func profile(id string, age int, gender models.Gender, km float64, interests ...string) models.User {
	return models.User{ID: id, Age: age, Gender: gender, Latitude: centerLat + km/111.19, Longitude: centerLng,
		Interests: models.NewTagSet(interests...)}
}

func ids(users []models.User) []string {
	out := make([]string, 0, len(users))
	for _, u := range users {
		out = append(out, u.ID)
	}
	return out
}

func TestCandidatesAnnotatesDistanceAndKeepsOrder(t *testing.T) {
	profiles := []models.User{
		profile("c", 25, models.GenderFemale, 20, "Travel"),
		profile("a", 25, models.GenderFemale, 5, "Travel"),
		profile("b", 25, models.GenderMale, 10, "Travel"),
	}

	got := Candidates(viewer(), profiles, models.DefaultFilters(), models.NewIDSet(), ContextDiscovery)

	require.Equal(t, []string{"c", "a", "b"}, ids(got))
	for _, u := range got {
		require.NotNil(t, u.Distance)
	}
	assert.InDelta(t, 5, *got[1].Distance, 0.1)
	assert.Nil(t, profiles[0].Distance, "input must not be modified")
}

func TestCandidatesSwipedHiddenOnlyInDiscovery(t *testing.T) {
	profiles := []models.User{profile("a", 25, models.GenderFemale, 1), profile("b", 25, models.GenderFemale, 1)}
	swiped := models.NewIDSet("a")

	assert.Equal(t, []string{"b"}, ids(Candidates(viewer(), profiles, models.DefaultFilters(), swiped, ContextDiscovery)))
	assert.Equal(t, []string{"a", "b"}, ids(Candidates(viewer(), profiles, models.DefaultFilters(), swiped, ContextBrowse)))
}

func TestCandidatesRadius(t *testing.T) {
	profiles := []models.User{
		profile("near", 25, models.GenderFemale, 10),
		profile("far", 25, models.GenderFemale, 300),
	}
	filters := models.DefaultFilters()
	filters.Radius = 50
	assert.Equal(t, []string{"near"}, ids(Candidates(viewer(), profiles, filters, nil, ContextDiscovery)))

	filters.Radius = models.UnboundedRadius
	assert.Equal(t, []string{"near", "far"}, ids(Candidates(viewer(), profiles, filters, nil, ContextDiscovery)))
}

func TestCandidatesGenderAndAge(t *testing.T) {
	profiles := []models.User{
		profile("f18", 18, models.GenderFemale, 1),
		profile("f40", 40, models.GenderFemale, 1),
		profile("m30", 30, models.GenderMale, 1),
	}
	filters := models.DefaultFilters()
	filters.Gender = models.GenderFilterFemale
	filters.MinAge, filters.MaxAge = 18, 30

	got := Candidates(viewer(), profiles, filters, nil, ContextDiscovery)
	assert.Equal(t, []string{"f18"}, ids(got))

	filters.Gender = models.GenderAll
	filters.MinAge, filters.MaxAge = 30, 40
	assert.Equal(t, []string{"f40", "m30"}, ids(Candidates(viewer(), profiles, filters, nil, ContextDiscovery)))
}

func TestCandidatesInterestsUseOrSemantics(t *testing.T) {
	profiles := []models.User{
		profile("travel", 25, models.GenderFemale, 1, "Travel"),
		profile("chess", 25, models.GenderFemale, 1, "Chess", "Yoga"),
		profile("none", 25, models.GenderFemale, 1),
	}
	filters := models.DefaultFilters()
	filters.Interests = models.NewTagSet("Travel", "Yoga")

	assert.Equal(t, []string{"travel", "chess"}, ids(Candidates(viewer(), profiles, filters, nil, ContextDiscovery)))
}

func TestCandidatesNeverViolateFilters(t *testing.T) {
	var profiles []models.User
	genders := []models.Gender{models.GenderMale, models.GenderFemale}
	for i := 0; i < 60; i++ {
		profiles = append(profiles, profile(string(rune('A'+i)), 18+i%50, genders[i%2], float64(i*7%150)))
	}
	filters := models.FilterState{MinAge: 22, MaxAge: 45, Gender: models.GenderFilterMale, Radius: 60}

	for _, u := range Candidates(viewer(), profiles, filters, nil, ContextBrowse) {
		assert.GreaterOrEqual(t, u.Age, 22)
		assert.LessOrEqual(t, u.Age, 45)
		assert.Equal(t, models.GenderMale, u.Gender)
		assert.LessOrEqual(t, *u.Distance, 60.0)
	}
}

func TestCandidatesSkipsViewer(t *testing.T) {
	me := viewer()
	got := Candidates(me, []models.User{me}, models.DefaultFilters(), nil, ContextBrowse)
	assert.Empty(t, got)
}

func TestParseContext(t *testing.T) {
	assert.Equal(t, ContextBrowse, ParseContext("browse"))
	assert.Equal(t, ContextDiscovery, ParseContext("discovery"))
	assert.Equal(t, ContextDiscovery, ParseContext(""))
}
