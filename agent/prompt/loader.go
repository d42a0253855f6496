package prompt

import (
	_ "embed"
	"strings"
)

var (
	//go:embed template/router.txt
	routerRaw string

	//go:embed template/conversation.txt
	conversationRaw string

	//go:embed template/rag.txt
	ragRaw string

	//go:embed template/summarization.txt
	summarizationRaw string

	//go:embed template/analysis.txt
	analysisRaw string

	//go:embed template/moderation.txt
	moderationRaw string
)

// PromptSet holds loaded prompt content.
type PromptSet struct {
	Router        string
	Conversation  string
	RAG           string
	Summarization string
	Analysis      string
	Moderation    string
}

// LoadPromptSet returns a PromptSet with trimmed prompt strings. Safe to
// call concurrently; the embed is compile-time.
func LoadPromptSet() PromptSet {
	return PromptSet{
		Router:        strings.TrimSpace(routerRaw),
		Conversation:  strings.TrimSpace(conversationRaw),
		RAG:           strings.TrimSpace(ragRaw),
		Summarization: strings.TrimSpace(summarizationRaw),
		Analysis:      strings.TrimSpace(analysisRaw),
		Moderation:    strings.TrimSpace(moderationRaw),
	}
}
