package models

type GenderFilter string

const (
	GenderAll          GenderFilter = "all"
	GenderFilterMale   GenderFilter = "male"
	GenderFilterFemale GenderFilter = "female"
)

// UnboundedRadius and anything above it disables distance filtering.
const UnboundedRadius = 100

type FilterState struct {
	MinAge    int          `json:"min_age" binding:"min=18,max=99" validate:"min=18,max=99"`
	MaxAge    int          `json:"max_age" binding:"min=18,max=99,gtefield=MinAge" validate:"min=18,max=99,gtefield=MinAge"`
	Gender    GenderFilter `json:"gender" binding:"required,oneof=all male female" validate:"required,oneof=all male female"`
	Interests TagSet       `json:"interests"`
	Radius    int          `json:"radius" binding:"min=1,max=100" validate:"min=1,max=100"`
}

func DefaultFilters() FilterState {
	return FilterState{
		MinAge:    18,
		MaxAge:    99,
		Gender:    GenderAll,
		Interests: TagSet{},
		Radius:    50,
	}
}

func (f FilterState) Bounded() bool {
	return f.Radius < UnboundedRadius
}
