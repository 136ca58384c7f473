package dialogue

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"hmo-benefits-core/internal/kb"
	"hmo-benefits-core/internal/llmclient"
	"hmo-benefits-core/internal/profile"
	"hmo-benefits-core/internal/prompts"
)

// Retriever is the subset of internal/retriever.Retriever the orchestrator
// needs, kept as an interface so tests can substitute a fake.
type Retriever interface {
	Search(ctx context.Context, query string, hmo profile.HMO, tier profile.Tier, topK int) ([]kb.KBItem, error)
}

// Config holds the orchestrator's budget knobs, mirroring
// internal/config.Config's dialogue-relevant fields.
type Config struct {
	MaxHistoryChars int
	MaxContextChars int
	TopK            int
}

// Orchestrator drives the two-phase conversation: INFO_COLLECTION gathers
// a validated UserProfile, QNA answers questions grounded in retrieval.
type Orchestrator struct {
	cfg        Config
	chatClient llmclient.ChatClient
	retriever  Retriever
	logger     *zap.Logger
}

func New(cfg Config, chatClient llmclient.ChatClient, retriever Retriever, logger *zap.Logger) *Orchestrator {
	return &Orchestrator{cfg: cfg, chatClient: chatClient, retriever: retriever, logger: logger}
}

// Handle dispatches to the INFO or QNA turn procedure based on the
// session's current phase. The phase only ever advances forward within a
// single SessionBundle's lifetime; it is never reverted here.
func (o *Orchestrator) Handle(ctx context.Context, req ChatRequest) (ChatResponse, error) {
	locale := resolveLocale(req.SessionBundle)
	requestID := req.SessionBundle.RequestID
	if requestID == "" {
		requestID = uuid.NewString()
	}

	if req.SessionBundle.Phase == profile.PhaseInfoCollection {
		return o.turnInfo(ctx, req, locale, requestID)
	}
	return o.turnQNA(ctx, req, locale, requestID)
}

func (o *Orchestrator) turnInfo(ctx context.Context, req ChatRequest, locale profile.Locale, requestID string) (ChatResponse, error) {
	sb := req.SessionBundle
	p := sb.UserProfile
	userText := req.UserInput

	_, problems := p.Validate()
	sysMsg := prompts.SysPromptInfo(locale)
	validationLine := "VALIDATION: OK"
	if len(problems) > 0 {
		validationLine = "VALIDATION: MISSING/INVALID -> " + strings.Join(problems, "; ")
	}

	messages := []llmclient.Message{
		{Role: llmclient.RoleSystem, Content: sysMsg},
		{Role: llmclient.RoleSystem, Content: fmt.Sprintf("PROFILE_SNAPSHOT_JSON: %s", profileSnapshotJSON(p))},
		{Role: llmclient.RoleSystem, Content: validationLine},
	}
	messages = append(messages, historyToMessages(sb.History, o.cfg.MaxHistoryChars)...)
	messages = append(messages, llmclient.Message{Role: llmclient.RoleUser, Content: userText})

	raw, err := o.chatClient.Chat(ctx, messages, 0.2, 350, true)
	if err != nil {
		if o.logger != nil {
			o.logger.Error("LLM error during info phase", zap.String("request_id", requestID), zap.Error(err))
		}
		return ChatResponse{
			AssistantText:   prompts.InfoLLMErrorFallback(locale),
			SuggestedPhase:  profile.PhaseInfoCollection,
			UserProfile:     p,
			History:         sb.History,
			ValidationFlags: []string{"LLM_ERROR"},
			TraceID:         requestID,
		}, nil
	}

	parsed := parseInfoModelOutput(raw)
	assistantSay := strings.TrimSpace(parsed.AssistantSay)

	sb.History.Turns = append(sb.History.Turns, Turn{UserText: userText, AssistantText: assistantSay})

	newProfile := profile.MergePatch(p, parsed.ProfilePatch, o.logger, requestID)
	nowComplete, _ := newProfile.Validate()

	suggestedPhase := profile.PhaseInfoCollection
	if parsed.Status == statusConfirmed && nowComplete {
		suggestedPhase = profile.PhaseQNA
	}

	if assistantSay == "" {
		assistantSay = prompts.InfoAssistantAck(locale)
	}

	return ChatResponse{
		AssistantText:  assistantSay,
		SuggestedPhase: suggestedPhase,
		UserProfile:    newProfile,
		History:        sb.History,
		TraceID:        requestID,
	}, nil
}

func (o *Orchestrator) turnQNA(ctx context.Context, req ChatRequest, locale profile.Locale, requestID string) (ChatResponse, error) {
	sb := req.SessionBundle
	p := sb.UserProfile
	query := req.UserInput

	var hints []string
	if p.HMOName != "" {
		hints = append(hints, string(p.HMOName))
	}
	if p.MembershipTier != "" {
		hints = append(hints, string(p.MembershipTier))
	}
	retrievalQuery := query
	if len(hints) > 0 {
		retrievalQuery = strings.Join(append([]string{query}, hints...), " | ")
	}

	found, err := o.retriever.Search(ctx, retrievalQuery, p.HMOName, p.MembershipTier, o.cfg.TopK)
	if err != nil {
		if o.logger != nil {
			o.logger.Error("kb search error", zap.String("request_id", requestID), zap.Error(err))
		}
		return ChatResponse{
			AssistantText:   prompts.KBSearchErrorFallback(locale),
			SuggestedPhase:  profile.PhaseQNA,
			UserProfile:     p,
			History:         sb.History,
			ValidationFlags: []string{"KB_ERROR"},
			TraceID:         requestID,
		}, nil
	}

	if len(found) == 0 {
		if o.logger != nil {
			o.logger.Info("no kb results for query", zap.String("request_id", requestID))
		}
		return ChatResponse{
			AssistantText:   prompts.NoKBMatchFallback(locale),
			SuggestedPhase:  profile.PhaseQNA,
			UserProfile:     p,
			History:         sb.History,
			ValidationFlags: []string{"NO_KB_MATCH"},
			TraceID:         requestID,
		}, nil
	}

	contextBlob, citations := composeContext(found, o.cfg.MaxContextChars)

	sysMsg := prompts.SysPromptQNA(locale)
	userInstr := prompts.UserInstructionsQNA(locale)
	profileLine := fmt.Sprintf("HMO=%s | Tier=%s | Gender=%s | BirthYear=%d",
		p.HMOName, p.MembershipTier, p.Gender, p.BirthYear)

	messages := []llmclient.Message{
		{Role: llmclient.RoleSystem, Content: sysMsg},
		{Role: llmclient.RoleSystem, Content: "Knowledge snippets:\n" + contextBlob},
		{Role: llmclient.RoleSystem, Content: "User " + profileLine},
	}
	messages = append(messages, historyToMessages(sb.History, o.cfg.MaxHistoryChars)...)
	messages = append(messages, llmclient.Message{Role: llmclient.RoleUser, Content: userInstr + "\n\n" + query})

	answer, err := o.chatClient.Chat(ctx, messages, 0.2, 600, false)
	if err != nil {
		if o.logger != nil {
			o.logger.Error("LLM error during qna phase", zap.String("request_id", requestID), zap.Error(err))
		}
		return ChatResponse{
			AssistantText:   prompts.InfoLLMErrorFallback(locale),
			SuggestedPhase:  profile.PhaseQNA,
			UserProfile:     p,
			History:         sb.History,
			ValidationFlags: []string{"LLM_ERROR"},
			TraceID:         requestID,
		}, nil
	}

	sb.History.Turns = append(sb.History.Turns, Turn{UserText: query, AssistantText: answer, Citations: citations})

	return ChatResponse{
		AssistantText:  answer,
		SuggestedPhase: profile.PhaseQNA,
		UserProfile:    p,
		History:        sb.History,
		Citations:      citations,
		TraceID:        requestID,
	}, nil
}

// composeContext renders retrieved chunks as "[i] field | field | ..."
// lines in retrieval order and truncates the blob (with an ellipsis
// marker) once it exceeds maxChars. citations preserves the same order
// so a model's bracketed [i] references line up positionally.
func composeContext(items []kb.KBItem, maxChars int) (blob string, citations []string) {
	var parts []string
	for i, it := range items {
		parts = append(parts, fmt.Sprintf("[%d] %s | %s | %s | %s | %s | %s | %s",
			i+1, it.Section, it.Service, it.HMO, tierTagsJoined(it.TierTags), it.Text, it.SourceURI, it.Kind))
		citations = append(citations, it.SourceURI)
	}
	blob = strings.Join(parts, "\n\n")
	blob = truncateRunes(blob, maxChars, "\n…")
	return blob, citations
}

// truncateRunes returns s unchanged if it has at most maxChars runes;
// otherwise it cuts s at a rune boundary and appends marker so the final
// result has at most maxChars runes, with marker always intact. When
// maxChars is smaller than marker itself, the result is marker alone,
// which is then longer than maxChars.
func truncateRunes(s string, maxChars int, marker string) string {
	runes := []rune(s)
	if len(runes) <= maxChars {
		return s
	}
	markerLen := len([]rune(marker))
	keep := maxChars - markerLen
	if keep < 0 {
		keep = 0
	}
	return string(runes[:keep]) + marker
}

func tierTagsJoined(tags []profile.Tier) string {
	strs := make([]string, len(tags))
	for i, t := range tags {
		strs[i] = string(t)
	}
	return strings.Join(strs, ",")
}

func profileSnapshotJSON(p profile.UserProfile) string {
	b, err := json.Marshal(p)
	if err != nil {
		return "{}"
	}
	return string(b)
}
