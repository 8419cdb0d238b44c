package models

import (
	"database/sql/driver"
	"fmt"
	"strings"
	"time"
)

type Gender string

const (
	GenderMale   Gender = "male"
	GenderFemale Gender = "female"
)

// MinAge is the youngest age a profile may register with.
const MinAge = 18

type User struct {
	ID           string    `json:"id" gorm:"primaryKey;type:uuid"`
	Email        string    `json:"-" gorm:"uniqueIndex;not null"`
	PasswordHash string    `json:"-" gorm:"not null"`
	Name         string    `json:"name" gorm:"column:full_name;not null"`
	Age          int       `json:"age" gorm:"not null"`
	Gender       Gender    `json:"gender" gorm:"not null"` // male, female
	PhotoURL     string    `json:"photo_url" gorm:"column:avatar_url"`
	Bio          string    `json:"bio"`
	Interests    TagSet    `json:"interests" gorm:"type:text"`
	City         string    `json:"city,omitempty"`
	Latitude     float64   `json:"latitude"`
	Longitude    float64   `json:"longitude"`
	Distance     *float64  `json:"distance,omitempty" gorm:"-"`
	IsCelebrity  bool      `json:"is_celebrity,omitempty" gorm:"default:false"`
	PushToken    string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// TagSet is an interest or event-tag vocabulary: predefined values and
// user-coined tags share one type. Order carries no meaning. It is stored
// as comma-joined text.
type TagSet []string

// NewTagSet trims entries and drops blanks and duplicates, keeping first-seen order.
func NewTagSet(tags ...string) TagSet {
	out := make(TagSet, 0, len(tags))
	seen := make(map[string]struct{}, len(tags))
	for _, t := range tags {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}

// ParseTagSet splits comma-joined text.
func ParseTagSet(s string) TagSet {
	if strings.TrimSpace(s) == "" {
		return TagSet{}
	}
	return NewTagSet(strings.Split(s, ",")...)
}

func (t TagSet) String() string {
	return strings.Join(t, ",")
}

func (t TagSet) Contains(tag string) bool {
	for _, v := range t {
		if v == tag {
			return true
		}
	}
	return false
}

// Intersect returns the tags of t also present in other, in t's order.
func (t TagSet) Intersect(other TagSet) TagSet {
	out := TagSet{}
	for _, v := range t {
		if other.Contains(v) && !out.Contains(v) {
			out = append(out, v)
		}
	}
	return out
}

// Overlaps reports whether at least one tag is shared.
func (t TagSet) Overlaps(other TagSet) bool {
	for _, v := range t {
		if other.Contains(v) {
			return true
		}
	}
	return false
}

func (t TagSet) Value() (driver.Value, error) {
	return t.String(), nil
}

func (t *TagSet) Scan(src interface{}) error {
	switch v := src.(type) {
	case nil:
		*t = TagSet{}
	case string:
		*t = ParseTagSet(v)
	case []byte:
		*t = ParseTagSet(string(v))
	default:
		return fmt.Errorf("cannot scan %T into TagSet", src)
	}
	return nil
}

// IDSet is a set of profile ids.
type IDSet map[string]struct{}

func NewIDSet(ids ...string) IDSet {
	s := make(IDSet, len(ids))
	for _, id := range ids {
		s[id] = struct{}{}
	}
	return s
}

// Add is idempotent.
func (s IDSet) Add(id string) {
	s[id] = struct{}{}
}

func (s IDSet) Has(id string) bool {
	_, ok := s[id]
	return ok
}

// Remove reports whether id was present.
func (s IDSet) Remove(id string) bool {
	if _, ok := s[id]; !ok {
		return false
	}
	delete(s, id)
	return true
}

func (s IDSet) Len() int {
	return len(s)
}

func (s IDSet) Slice() []string {
	out := make([]string, 0, len(s))
	for id := range s {
		out = append(out, id)
	}
	return out
}
