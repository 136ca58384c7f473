package profile

import (
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"
)

// Patch is a partial profile update as decoded from the LLM's JSON
// output: raw JSON values, not yet canonicalized or validated. Modeling
// it as a map rather than a typed struct of pointers keeps the merge
// function the single place that knows the accepted key set and
// synonyms — no reflection-driven setters (spec.md §9).
type Patch map[string]any

// acceptedPatchKeys is the whitelist of fields an LLM patch may touch.
// Anything else is ignored (spec.md §4.E: "Unknown keys in the patch are
// ignored").
var acceptedPatchKeys = map[string]bool{
	"first_name":      true,
	"last_name":       true,
	"id_number":       true,
	"gender":          true,
	"birth_year":      true,
	"hmo_name":        true,
	"hmo_card_number": true,
	"membership_tier": true,
}

// MergePatch applies patch to profile following the canonicalization map
// and rollback semantics of spec.md §4.E: each field is canonicalized,
// validated in isolation, and rolled back individually if invalid; if
// the resulting profile is still not well-formed the whole patch is
// discarded and the original profile is returned unchanged. requestID is
// included in any warning log line.
func MergePatch(profile UserProfile, patch Patch, logger *zap.Logger, requestID string) UserProfile {
	if len(patch) == 0 {
		return profile
	}

	candidate := profile
	anyApplied := false

	for key, rawValue := range patch {
		if !acceptedPatchKeys[key] {
			continue
		}
		if rawValue == nil {
			continue
		}

		next, err := applyField(candidate, key, rawValue)
		if err != nil {
			if logger != nil {
				logger.Warn("ignoring invalid profile patch field",
					zap.String("request_id", requestID),
					zap.String("field", key),
					zap.Any("value", rawValue),
					zap.Error(err))
			}
			continue
		}
		candidate = next
		anyApplied = true
	}

	if !anyApplied {
		return profile
	}

	if err := selfConsistent(candidate); err != nil {
		if logger != nil {
			logger.Warn("profile patch left the profile inconsistent, discarding entire patch",
				zap.String("request_id", requestID),
				zap.Error(err))
		}
		return profile
	}

	return candidate
}

// applyField canonicalizes and validates a single field update, returning
// an error (without mutating the input) when the new value is malformed.
func applyField(profile UserProfile, key string, rawValue any) (UserProfile, error) {
	switch key {
	case "first_name":
		s, err := asString(rawValue)
		if err != nil {
			return profile, err
		}
		profile.FirstName = strings.TrimSpace(s)
		return profile, nil

	case "last_name":
		s, err := asString(rawValue)
		if err != nil {
			return profile, err
		}
		profile.LastName = strings.TrimSpace(s)
		return profile, nil

	case "id_number":
		s, err := asString(rawValue)
		if err != nil {
			return profile, err
		}
		s = strings.TrimSpace(s)
		if !isNineDigits(s) {
			return profile, fmt.Errorf("id_number must be exactly 9 digits, got %q", s)
		}
		profile.IDNumber = s
		return profile, nil

	case "hmo_card_number":
		s, err := asString(rawValue)
		if err != nil {
			return profile, err
		}
		s = strings.TrimSpace(s)
		if !isNineDigits(s) {
			return profile, fmt.Errorf("hmo_card_number must be exactly 9 digits, got %q", s)
		}
		profile.HMOCardNumber = s
		return profile, nil

	case "gender":
		s, err := asString(rawValue)
		if err != nil {
			return profile, err
		}
		canon := canonicalizeGender(s)
		profile.Gender = canon
		return profile, nil

	case "hmo_name":
		s, err := asString(rawValue)
		if err != nil {
			return profile, err
		}
		canon := canonicalizeHMO(s)
		if !ValidHMO(canon) {
			return profile, fmt.Errorf("unrecognized hmo_name %q", s)
		}
		profile.HMOName = canon
		return profile, nil

	case "membership_tier":
		s, err := asString(rawValue)
		if err != nil {
			return profile, err
		}
		canon := canonicalizeTier(s)
		if !ValidTier(canon) {
			return profile, fmt.Errorf("unrecognized membership_tier %q", s)
		}
		profile.MembershipTier = canon
		return profile, nil

	case "birth_year":
		year, err := asInt(rawValue)
		if err != nil {
			return profile, err
		}
		if !validAge(year) {
			return profile, fmt.Errorf("birth_year %d implies age outside 0-120", year)
		}
		profile.BirthYear = year
		return profile, nil

	default:
		return profile, fmt.Errorf("unknown field %q", key)
	}
}

func canonicalizeHMO(s string) HMO {
	lower := strings.ToLower(strings.TrimSpace(s))
	if canon, ok := hmoSynonyms[lower]; ok {
		return canon
	}
	return HMO(strings.TrimSpace(s))
}

func canonicalizeTier(s string) Tier {
	lower := strings.ToLower(strings.TrimSpace(s))
	if canon, ok := tierSynonyms[lower]; ok {
		return canon
	}
	return Tier(strings.TrimSpace(s))
}

func canonicalizeGender(s string) Gender {
	lower := strings.ToLower(strings.TrimSpace(s))
	if canon, ok := genderSynonyms[lower]; ok {
		return canon
	}
	return Gender(lower)
}

// asString coerces a decoded-JSON value to a string; LLM output may
// legitimately send numbers-as-strings or plain strings.
func asString(v any) (string, error) {
	switch t := v.(type) {
	case string:
		return t, nil
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), nil
	default:
		return "", fmt.Errorf("expected string, got %T", v)
	}
}

// asInt coerces a decoded-JSON value to an int. birth_year may arrive as
// a JSON number or as a digit string (spec.md §4.E canonicalization map).
func asInt(v any) (int, error) {
	switch t := v.(type) {
	case float64:
		return int(t), nil
	case string:
		trimmed := strings.TrimSpace(t)
		if trimmed == "" {
			return 0, fmt.Errorf("empty birth_year string")
		}
		for _, r := range trimmed {
			if r < '0' || r > '9' {
				return 0, fmt.Errorf("birth_year %q is not a digit string", t)
			}
		}
		n, err := strconv.Atoi(trimmed)
		if err != nil {
			return 0, fmt.Errorf("birth_year %q is not an integer: %w", t, err)
		}
		return n, nil
	default:
		return 0, fmt.Errorf("expected number or digit string, got %T", v)
	}
}

// selfConsistent re-checks the format-level invariants (not completeness)
// of every set field, mirroring the original's "if the resulting profile
// still fails construction" guard.
func selfConsistent(p UserProfile) error {
	if p.IDNumber != "" && !isNineDigits(p.IDNumber) {
		return fmt.Errorf("id_number not 9 digits")
	}
	if p.HMOCardNumber != "" && !isNineDigits(p.HMOCardNumber) {
		return fmt.Errorf("hmo_card_number not 9 digits")
	}
	if p.BirthYear != 0 && !validAge(p.BirthYear) {
		return fmt.Errorf("birth_year implies invalid age")
	}
	if p.HMOName != "" && !ValidHMO(p.HMOName) {
		return fmt.Errorf("hmo_name not canonical")
	}
	if p.MembershipTier != "" && !ValidTier(p.MembershipTier) {
		return fmt.Errorf("membership_tier not canonical")
	}
	return nil
}
