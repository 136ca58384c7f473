package prompts

import (
	"strings"
	"testing"

	"hmo-benefits-core/internal/profile"
)

func TestSysPromptInfoVariesByLocale(t *testing.T) {
	he := SysPromptInfo(profile.LocaleHE)
	en := SysPromptInfo(profile.LocaleEN)
	if he == en {
		t.Fatal("expected locale-specific prompts to differ")
	}
	if !strings.Contains(he, "READY_TO_CONFIRM") {
		t.Error("expected Hebrew info prompt to mention READY_TO_CONFIRM")
	}
	if !strings.Contains(en, "READY_TO_CONFIRM") {
		t.Error("expected English info prompt to mention READY_TO_CONFIRM")
	}
}

func TestSysPromptQNAReferencesCitations(t *testing.T) {
	he := SysPromptQNA(profile.LocaleHE)
	if !strings.Contains(he, "[1], [2]") {
		t.Error("expected Hebrew QNA prompt to describe the citation format")
	}
}

func TestFallbacksDifferByLocale(t *testing.T) {
	if InfoLLMErrorFallback(profile.LocaleHE) == InfoLLMErrorFallback(profile.LocaleEN) {
		t.Error("expected locale-specific LLM error fallback")
	}
	if KBSearchErrorFallback(profile.LocaleHE) == KBSearchErrorFallback(profile.LocaleEN) {
		t.Error("expected locale-specific KB error fallback")
	}
	if NoKBMatchFallback(profile.LocaleHE) == NoKBMatchFallback(profile.LocaleEN) {
		t.Error("expected locale-specific no-match fallback")
	}
}

func TestUnknownLocaleFallsBackToEnglish(t *testing.T) {
	got := SysPromptQNA(profile.Locale("fr"))
	want := SysPromptQNA(profile.LocaleEN)
	if got != want {
		t.Error("expected unrecognized locale to default to English prompt")
	}
}
