package dialogue

import (
	"context"
	"testing"

	"hmo-benefits-core/internal/kb"
	"hmo-benefits-core/internal/llmclient"
	"hmo-benefits-core/internal/profile"
)

type scriptedChatClient struct {
	responses []string
	i         int
	lastJSON  bool
}

func (c *scriptedChatClient) Chat(ctx context.Context, messages []llmclient.Message, temperature float64, maxTokens int, jsonMode bool) (string, error) {
	c.lastJSON = jsonMode
	if c.i >= len(c.responses) {
		return c.responses[len(c.responses)-1], nil
	}
	r := c.responses[c.i]
	c.i++
	return r, nil
}

type fakeRetriever struct {
	items []kb.KBItem
}

func (f fakeRetriever) Search(ctx context.Context, query string, hmo profile.HMO, tier profile.Tier, topK int) ([]kb.KBItem, error) {
	return f.items, nil
}

func baseSession() SessionBundle {
	return SessionBundle{
		UserProfile: profile.UserProfile{},
		History:     ConversationHistory{},
		Phase:       profile.PhaseInfoCollection,
		Locale:      profile.LocaleHE,
	}
}

func TestInfoTurnStaysInInfoUntilConfirmed(t *testing.T) {
	chat := &scriptedChatClient{responses: []string{
		`{"assistant_say":"מה שמך?","profile_patch":{},"status":"ASKING"}`,
	}}
	orch := New(Config{MaxHistoryChars: 1000, MaxContextChars: 1000, TopK: 6}, chat, fakeRetriever{}, nil)

	resp, err := orch.Handle(context.Background(), ChatRequest{SessionBundle: baseSession(), UserInput: "שלום"})
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if resp.SuggestedPhase != profile.PhaseInfoCollection {
		t.Fatalf("expected to stay in INFO_COLLECTION, got %s", resp.SuggestedPhase)
	}
	if !chat.lastJSON {
		t.Error("expected info phase to request json_mode")
	}
}

func TestInfoTurnAdvancesToQNAOnlyWhenConfirmedAndComplete(t *testing.T) {
	patch := `{"first_name":"דוד","last_name":"כהן","id_number":"123456789","gender":"male",` +
		`"birth_year":1990,"hmo_name":"מכבי","hmo_card_number":"987654321","membership_tier":"זהב"}`
	chat := &scriptedChatClient{responses: []string{
		`{"assistant_say":"הכל נכון?","profile_patch":` + patch + `,"status":"CONFIRMED"}`,
	}}
	orch := New(Config{MaxHistoryChars: 1000, MaxContextChars: 1000, TopK: 6}, chat, fakeRetriever{}, nil)

	resp, err := orch.Handle(context.Background(), ChatRequest{SessionBundle: baseSession(), UserInput: "אני דוד כהן..."})
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if resp.SuggestedPhase != profile.PhaseQNA {
		t.Fatalf("expected phase to advance to QNA, got %s", resp.SuggestedPhase)
	}
	if resp.UserProfile.HMOName != profile.HMOMaccabi {
		t.Errorf("expected merged profile hmo_name, got %q", resp.UserProfile.HMOName)
	}
}

func TestInfoTurnConfirmedButIncompleteStaysInInfo(t *testing.T) {
	chat := &scriptedChatClient{responses: []string{
		`{"assistant_say":"עוד רגע","profile_patch":{"first_name":"דוד"},"status":"CONFIRMED"}`,
	}}
	orch := New(Config{MaxHistoryChars: 1000, MaxContextChars: 1000, TopK: 6}, chat, fakeRetriever{}, nil)

	resp, err := orch.Handle(context.Background(), ChatRequest{SessionBundle: baseSession(), UserInput: "שלום"})
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if resp.SuggestedPhase != profile.PhaseInfoCollection {
		t.Fatalf("expected to stay in INFO_COLLECTION since profile is incomplete, got %s", resp.SuggestedPhase)
	}
}

func TestInfoTurnMalformedJSONFallsBackSafely(t *testing.T) {
	chat := &scriptedChatClient{responses: []string{"not json at all"}}
	orch := New(Config{MaxHistoryChars: 1000, MaxContextChars: 1000, TopK: 6}, chat, fakeRetriever{}, nil)

	resp, err := orch.Handle(context.Background(), ChatRequest{SessionBundle: baseSession(), UserInput: "שלום"})
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if resp.SuggestedPhase != profile.PhaseInfoCollection {
		t.Fatalf("expected fallback to stay in INFO_COLLECTION, got %s", resp.SuggestedPhase)
	}
	if resp.AssistantText == "" {
		t.Fatal("expected a non-empty fallback assistant message")
	}
}

func TestQNATurnReturnsCitationsInRetrievalOrder(t *testing.T) {
	chat := &scriptedChatClient{responses: []string{"זכאי ל-70% הנחה [1] [2]"}}
	items := []kb.KBItem{
		{Text: "70% הנחה על דיקור סיני", SourceURI: "file://a.html#t1", Kind: kb.KindBenefit},
		{Text: "50% הנחה על סתימות", SourceURI: "file://b.html#t2", Kind: kb.KindBenefit},
	}
	orch := New(Config{MaxHistoryChars: 1000, MaxContextChars: 1000, TopK: 6}, chat, fakeRetriever{items: items}, nil)

	sb := baseSession()
	sb.Phase = profile.PhaseQNA
	resp, err := orch.Handle(context.Background(), ChatRequest{SessionBundle: sb, UserInput: "כמה הנחה יש על דיקור סיני?"})
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if len(resp.Citations) != 2 || resp.Citations[0] != items[0].SourceURI || resp.Citations[1] != items[1].SourceURI {
		t.Fatalf("expected citations in retrieval order, got %v", resp.Citations)
	}
}

func TestQNATurnWithNoKBResultsReturnsFallback(t *testing.T) {
	chat := &scriptedChatClient{responses: []string{"should not be called"}}
	orch := New(Config{MaxHistoryChars: 1000, MaxContextChars: 1000, TopK: 6}, chat, fakeRetriever{}, nil)

	sb := baseSession()
	sb.Phase = profile.PhaseQNA
	resp, err := orch.Handle(context.Background(), ChatRequest{SessionBundle: sb, UserInput: "שאלה כלשהי"})
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if len(resp.ValidationFlags) == 0 || resp.ValidationFlags[0] != "NO_KB_MATCH" {
		t.Fatalf("expected NO_KB_MATCH flag, got %v", resp.ValidationFlags)
	}
}

func TestLocaleFallbackSeedsFromProfileWhenSessionLocaleUnset(t *testing.T) {
	sb := SessionBundle{
		UserProfile: profile.UserProfile{Locale: profile.LocaleEN},
		Phase:       profile.PhaseInfoCollection,
	}
	if got := resolveLocale(sb); got != profile.LocaleEN {
		t.Fatalf("expected profile locale to seed session locale, got %q", got)
	}
}

func TestLocaleDefaultsToHebrewWhenBothUnset(t *testing.T) {
	sb := SessionBundle{UserProfile: profile.UserProfile{}, Phase: profile.PhaseInfoCollection}
	if got := resolveLocale(sb); got != profile.LocaleHE {
		t.Fatalf("expected default locale he, got %q", got)
	}
}
