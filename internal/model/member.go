package model

import "time"

// Member is a person record in a family tree. Dates are stored as ISO
// strings ("2006-01-02" or just "2006") since historical records often
// carry partial dates.
type Member struct {
	ID        int64     `json:"id"`
	FamilyID  int64     `json:"family_id"`
	Name      string    `json:"name"`
	Alias     string    `json:"alias,omitempty"`
	Sex       string    `json:"sex,omitempty"`
	Born      string    `json:"born,omitempty"`
	Died      string    `json:"died,omitempty"`
	Email     string    `json:"email,omitempty"`
	Notes     string    `json:"notes,omitempty"`
	PhotoURL  string    `json:"photo_url,omitempty"`
	Deleted   bool      `json:"deleted,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// BirthMonth returns the month of the member's birth date, or 0 when the
// stored date has no month component.
func (m *Member) BirthMonth() int {
	t, ok := parseFlexibleDate(m.Born)
	if !ok {
		return 0
	}
	return int(t.Month())
}

// BirthDay returns the day-of-month of the member's birth date, or 0.
func (m *Member) BirthDay() int {
	t, ok := parseFlexibleDate(m.Born)
	if !ok {
		return 0
	}
	return t.Day()
}

// Alive reports whether the member has no recorded death date.
func (m *Member) Alive() bool {
	return m.Died == "" || m.Died == "0000-00-00"
}

func parseFlexibleDate(s string) (time.Time, bool) {
	for _, layout := range []string{"2006-01-02", "2006-01"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
