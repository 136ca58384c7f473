package dialogue

import (
	"unicode/utf8"

	"hmo-benefits-core/internal/llmclient"
)

// historyToMessages flattens turns into role/content messages, oldest
// first, then drops messages from the front until the total content
// length fits within maxChars. This mirrors the original's left-trim:
// the most recent exchanges are kept, older context is dropped first.
func historyToMessages(history ConversationHistory, maxChars int) []llmclient.Message {
	var msgs []llmclient.Message
	for _, t := range history.Turns {
		if t.UserText != "" {
			msgs = append(msgs, llmclient.Message{Role: llmclient.RoleUser, Content: t.UserText})
		}
		if t.AssistantText != "" {
			msgs = append(msgs, llmclient.Message{Role: llmclient.RoleAssistant, Content: t.AssistantText})
		}
	}

	for len(msgs) > 0 && totalChars(msgs) > maxChars {
		msgs = msgs[1:]
	}
	return msgs
}

func totalChars(msgs []llmclient.Message) int {
	n := 0
	for _, m := range msgs {
		n += utf8.RuneCountInString(m.Content)
	}
	return n
}
