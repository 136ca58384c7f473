// Package profile models the UserProfile entity, its validation
// predicates, and the synonym-canonicalizing patch merger described in
// spec.md §3 and §4.E.
package profile

import "time"

// UserProfile is the subject of INFO_COLLECTION and the retrieval bias
// used during QNA (spec.md §3).
type UserProfile struct {
	FirstName      string `json:"first_name,omitempty"`
	LastName       string `json:"last_name,omitempty"`
	IDNumber       string `json:"id_number,omitempty"`
	Gender         Gender `json:"gender,omitempty"`
	BirthYear      int    `json:"birth_year,omitempty"`
	HMOName        HMO    `json:"hmo_name,omitempty"`
	HMOCardNumber  string `json:"hmo_card_number,omitempty"`
	MembershipTier Tier   `json:"membership_tier,omitempty"`
	Locale         Locale `json:"locale,omitempty"`
}

// currentYear is swappable in tests; production uses the wall clock.
var currentYear = func() int { return time.Now().Year() }

// Validate reports whether every field-level predicate of spec.md §4.E
// holds and, when not, the list of problems found. An empty problems
// slice means complete == true.
func (p UserProfile) Validate() (complete bool, problems []string) {
	if p.FirstName == "" {
		problems = append(problems, "first_name missing")
	}
	if p.LastName == "" {
		problems = append(problems, "last_name missing")
	}
	if !isNineDigits(p.IDNumber) {
		problems = append(problems, "id_number missing or invalid (9 digits)")
	}
	if p.Gender == "" || p.Gender == GenderUnspecified {
		problems = append(problems, "gender missing")
	}
	if p.BirthYear == 0 || !validAge(p.BirthYear) {
		problems = append(problems, "birth_year missing or invalid (age must be 0-120)")
	}
	if p.HMOName == "" || !ValidHMO(p.HMOName) {
		problems = append(problems, "hmo_name missing or invalid")
	}
	if !isNineDigits(p.HMOCardNumber) {
		problems = append(problems, "hmo_card_number missing or invalid (9 digits)")
	}
	if p.MembershipTier == "" || !ValidTier(p.MembershipTier) {
		problems = append(problems, "membership_tier missing or invalid")
	}
	return len(problems) == 0, problems
}

func isNineDigits(s string) bool {
	if len(s) != 9 {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func validAge(birthYear int) bool {
	age := currentYear() - birthYear
	return age >= 0 && age <= 120
}
