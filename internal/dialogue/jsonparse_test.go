package dialogue

import "testing"

func TestParseInfoModelOutputValidJSON(t *testing.T) {
	out := parseInfoModelOutput(`{"assistant_say":"hi","profile_patch":{"first_name":"a"},"status":"ASKING"}`)
	if out.AssistantSay != "hi" {
		t.Errorf("got %q", out.AssistantSay)
	}
	if out.Status != statusAsking {
		t.Errorf("got status %q", out.Status)
	}
	if out.ProfilePatch["first_name"] != "a" {
		t.Errorf("got patch %v", out.ProfilePatch)
	}
}

func TestParseInfoModelOutputMalformedFallsBack(t *testing.T) {
	out := parseInfoModelOutput("not json")
	if out.Status != statusAsking {
		t.Errorf("expected fallback status ASKING, got %q", out.Status)
	}
	if out.AssistantSay == "" {
		t.Error("expected non-empty fallback assistant_say")
	}
}

func TestParseInfoModelOutputEmptyFallsBack(t *testing.T) {
	out := parseInfoModelOutput("")
	if out.Status != statusAsking {
		t.Errorf("expected fallback status ASKING, got %q", out.Status)
	}
}

func TestParseInfoModelOutputMissingStatusDefaultsToAsking(t *testing.T) {
	out := parseInfoModelOutput(`{"assistant_say":"hi"}`)
	if out.Status != statusAsking {
		t.Errorf("expected default status ASKING, got %q", out.Status)
	}
	if out.ProfilePatch == nil {
		t.Error("expected non-nil empty patch map")
	}
}
