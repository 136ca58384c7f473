package kb

import (
	"strings"

	"github.com/jdkato/prose/v2"
	"go.uber.org/zap"
)

// BlurbSplitter breaks a long paragraph into smaller embeddable pieces.
// Kept as an interface so the sentence-boundary strategy can be swapped
// independently of the HTML extraction logic.
type BlurbSplitter interface {
	Split(text string) []string
}

// proseSentenceSplitter uses prose's sentence tokenizer. If tokenization
// fails (malformed or pathological input), Split returns the whole
// paragraph as a single piece.
type proseSentenceSplitter struct {
	logger *zap.Logger
}

func NewProseSentenceSplitter(logger *zap.Logger) BlurbSplitter {
	return proseSentenceSplitter{logger: logger}
}

func (s proseSentenceSplitter) Split(text string) []string {
	doc, err := prose.NewDocument(text)
	if err != nil {
		if s.logger != nil {
			s.logger.Warn("prose sentence tokenization failed, keeping paragraph whole", zap.Error(err))
		}
		return []string{text}
	}
	sentences := doc.Sentences()
	if len(sentences) == 0 {
		return []string{text}
	}
	out := make([]string, 0, len(sentences))
	for _, sent := range sentences {
		trimmed := strings.TrimSpace(sent.Text)
		if trimmed != "" {
			out = append(out, trimmed)
		}
	}
	if len(out) == 0 {
		return []string{text}
	}
	return out
}
