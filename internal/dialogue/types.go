// Package dialogue implements the two-phase orchestrator: INFO_COLLECTION
// gathers and validates a UserProfile through an LLM-driven JSON contract,
// then QNA answers benefit questions grounded in knowledge-base retrieval.
// The phase transition is monotone — once a session reaches QNA it never
// reverts to INFO_COLLECTION within the lifetime of that SessionBundle.
package dialogue

import "hmo-benefits-core/internal/profile"

// Turn is one completed exchange, kept for history-trimming and citation
// bookkeeping.
type Turn struct {
	UserText      string   `json:"user_text,omitempty"`
	AssistantText string   `json:"assistant_text,omitempty"`
	Citations     []string `json:"citations,omitempty"`
}

// ConversationHistory is the ordered list of prior turns for a session.
type ConversationHistory struct {
	Turns []Turn `json:"turns"`
}

// SessionBundle is the caller-owned state threaded through every request:
// the profile collected so far, the conversation history, the current
// phase, and the session's display locale.
type SessionBundle struct {
	UserProfile profile.UserProfile  `json:"user_profile"`
	History     ConversationHistory  `json:"history"`
	Phase       profile.Phase        `json:"phase"`
	Locale      profile.Locale       `json:"locale"`
	RequestID   string               `json:"request_id,omitempty"`
}

// ChatRequest pairs a session with the user's latest message.
type ChatRequest struct {
	SessionBundle SessionBundle `json:"session_bundle"`
	UserInput     string        `json:"user_input"`
}

// ChatResponse is the orchestrator's reply: what to say, the phase the
// caller should persist next, the (possibly patched) profile, and any
// citations or validation flags produced this turn.
type ChatResponse struct {
	AssistantText    string              `json:"assistant_text"`
	SuggestedPhase   profile.Phase       `json:"suggested_phase"`
	UserProfile      profile.UserProfile `json:"user_profile"`
	History          ConversationHistory `json:"history"`
	Citations        []string            `json:"citations,omitempty"`
	ValidationFlags  []string            `json:"validation_flags,omitempty"`
	TraceID          string              `json:"trace_id,omitempty"`
}

// resolveLocale applies the fallback-seed precedence: the session's own
// locale is authoritative; if unset, the profile's locale seeds it; if
// both are unset, Hebrew is the system default.
func resolveLocale(sb SessionBundle) profile.Locale {
	if sb.Locale != "" {
		return sb.Locale
	}
	if sb.UserProfile.Locale != "" {
		return sb.UserProfile.Locale
	}
	return profile.LocaleHE
}
