package dialogue

import "testing"

func TestHistoryToMessagesFlattensTurns(t *testing.T) {
	h := ConversationHistory{Turns: []Turn{
		{UserText: "hi", AssistantText: "hello"},
		{UserText: "bye"},
	}}
	msgs := historyToMessages(h, 1000)
	if len(msgs) != 3 {
		t.Fatalf("expected 3 flattened messages, got %d", len(msgs))
	}
}

func TestHistoryToMessagesTrimsFromOldest(t *testing.T) {
	h := ConversationHistory{Turns: []Turn{
		{UserText: "first user message is pretty long indeed", AssistantText: "first assistant reply is also long"},
		{UserText: "second", AssistantText: "second reply"},
	}}
	msgs := historyToMessages(h, 20)
	if len(msgs) == 0 {
		t.Fatal("expected at least the most recent message to survive")
	}
	for _, m := range msgs {
		if m.Content == "first user message is pretty long indeed" {
			t.Fatal("expected oldest message to be trimmed first")
		}
	}
}

func TestHistoryToMessagesEmptyHistory(t *testing.T) {
	msgs := historyToMessages(ConversationHistory{}, 100)
	if len(msgs) != 0 {
		t.Fatalf("expected no messages for empty history, got %d", len(msgs))
	}
}
