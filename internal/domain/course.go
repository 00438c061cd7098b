package domain

type Course struct {
	ID                int64  `json:"id"`
	Code              string `json:"code"`
	Name              string `json:"name"`
	Department        string `json:"department"`
	Credits           int32  `json:"credits"`
	YearLevel         int32  `json:"year"`
	Semester          int32  `json:"semester"`
	TheoryLecturer    string `json:"theory_lecturer"`
	PracticalLecturer string `json:"practical_lecturer"`
	Color             string `json:"color"`
}

// LecturerFor returns the course lecturer responsible for the given kind of class.
func (c *Course) LecturerFor(kind ClassKind) string {
	if kind == ClassTheory {
		return c.TheoryLecturer
	}
	return c.PracticalLecturer
}

type CourseFilter struct {
	YearLevel *int32
	Semester  *int32
	Search    string
}

type Venue struct {
	ID   int64  `json:"id"`
	Code string `json:"code"`
	Name string `json:"name"`
}
