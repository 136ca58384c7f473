package profile

import (
	"testing"

	"go.uber.org/zap"
)

func withFixedYear(year int, fn func()) {
	old := currentYear
	currentYear = func() int { return year }
	defer func() { currentYear = old }()
	fn()
}

func TestValidateEmptyProfileHasEightProblems(t *testing.T) {
	var p UserProfile
	complete, problems := p.Validate()
	if complete {
		t.Fatal("expected empty profile to be incomplete")
	}
	if len(problems) != 8 {
		t.Fatalf("expected 8 problems, got %d: %v", len(problems), problems)
	}
}

func TestValidateCompleteProfile(t *testing.T) {
	withFixedYear(2026, func() {
		p := UserProfile{
			FirstName:      "דוד",
			LastName:       "כהן",
			IDNumber:       "123456789",
			Gender:         GenderMale,
			BirthYear:      1990,
			HMOName:        HMOMaccabi,
			HMOCardNumber:  "987654321",
			MembershipTier: TierGold,
		}
		complete, problems := p.Validate()
		if !complete {
			t.Fatalf("expected complete profile, got problems: %v", problems)
		}
	})
}

func TestValidateRejectsOutOfRangeAge(t *testing.T) {
	withFixedYear(2026, func() {
		p := UserProfile{BirthYear: 1800}
		_, problems := p.Validate()
		found := false
		for _, msg := range problems {
			if msg == "birth_year missing or invalid (age must be 0-120)" {
				found = true
			}
		}
		if !found {
			t.Fatalf("expected birth_year problem, got %v", problems)
		}
	})
}

func TestMergePatchNoopLeavesProfileIdentical(t *testing.T) {
	p := UserProfile{FirstName: "a", LastName: "b"}
	merged := MergePatch(p, Patch{}, nil, "")
	if merged != p {
		t.Fatalf("expected identical profile, got %+v", merged)
	}
}

func TestMergePatchCanonicalizesSynonyms(t *testing.T) {
	withFixedYear(2026, func() {
		p := UserProfile{}
		patch := Patch{
			"hmo_name":        "maccabi",
			"membership_tier": "Gold",
			"gender":          "זכר",
			"birth_year":      "1990",
			"id_number":       "123456789",
		}
		merged := MergePatch(p, patch, zap.NewNop(), "req-1")
		if merged.HMOName != HMOMaccabi {
			t.Errorf("expected hmo_name canonicalized to מכבי, got %q", merged.HMOName)
		}
		if merged.MembershipTier != TierGold {
			t.Errorf("expected membership_tier canonicalized to זהב, got %q", merged.MembershipTier)
		}
		if merged.Gender != GenderMale {
			t.Errorf("expected gender canonicalized to male, got %q", merged.Gender)
		}
		if merged.BirthYear != 1990 {
			t.Errorf("expected birth_year 1990, got %d", merged.BirthYear)
		}
		if merged.IDNumber != "123456789" {
			t.Errorf("expected id_number passthrough, got %q", merged.IDNumber)
		}
	})
}

func TestMergePatchRollsBackInvalidFieldOnly(t *testing.T) {
	p := UserProfile{FirstName: "existing"}
	patch := Patch{
		"last_name": "new-last",
		"id_number": "12", // invalid: not 9 digits
	}
	merged := MergePatch(p, patch, zap.NewNop(), "req-2")
	if merged.LastName != "new-last" {
		t.Errorf("expected last_name applied, got %q", merged.LastName)
	}
	if merged.IDNumber != "" {
		t.Errorf("expected id_number rolled back, got %q", merged.IDNumber)
	}
}

func TestMergePatchIgnoresUnknownKeys(t *testing.T) {
	p := UserProfile{}
	patch := Patch{"favorite_color": "blue"}
	merged := MergePatch(p, patch, nil, "")
	if merged != p {
		t.Fatalf("expected unknown key to be ignored, got %+v", merged)
	}
}

func TestMergePatchIgnoresNullValues(t *testing.T) {
	p := UserProfile{FirstName: "keep-me"}
	patch := Patch{"first_name": nil}
	merged := MergePatch(p, patch, nil, "")
	if merged.FirstName != "keep-me" {
		t.Fatalf("expected null to be ignored, got %q", merged.FirstName)
	}
}
