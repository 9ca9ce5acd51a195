// Package composer assembles the message sequence sent to the completion
// service: persona, privacy-gated journal context, chronological history.
package composer

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/anshulsoni4/whisper-well/domain"
	"github.com/anshulsoni4/whisper-well/llm"
)

// persona is always present, with or without journal context.
const persona = `You are a helpful assistant named Whisper Well. Be concise, friendly, and supportive.
You are a personal journaling companion. Keep a gentle tone, use emoji sparingly, and end each reply with exactly one hashtag emotional tag (for example #hopeful).`

// pastSelfPhrases trigger recall of all past entries.
var pastSelfPhrases = []string{"what was i like", "summarize", "past entries"}

// EntrySource supplies journal entries for conditional context injection.
type EntrySource interface {
	List(ctx context.Context) []domain.JournalEntry
	ListPastWeek(ctx context.Context) []domain.JournalEntry
}

// Composer builds completion requests.
type Composer struct {
	entries EntrySource
	now     func() time.Time
}

// New creates a composer reading journal context from the given source.
func New(entries EntrySource) *Composer {
	return &Composer{entries: entries, now: time.Now}
}

// BuildSystemMessage returns the persona, extended with a serialized block of
// journal entries only when the current utterance asks for it: a weekly
// summary on Sundays, or an explicit past-self request. Journal content never
// leaks into unrelated completions.
func (c *Composer) BuildSystemMessage(ctx context.Context, utterance string) string {
	lower := strings.ToLower(utterance)

	if c.now().Weekday() == time.Sunday && strings.Contains(lower, "week") {
		return appendEntryBlock(persona,
			"The writer asked for a weekly summary. Their journal entries from the past week:",
			c.entries.ListPastWeek(ctx))
	}

	for _, phrase := range pastSelfPhrases {
		if strings.Contains(lower, phrase) {
			return appendEntryBlock(persona,
				"The writer asked to reflect on their past self. Their journal entries:",
				c.entries.List(ctx))
		}
	}

	return persona
}

// BuildCompletionRequest orders the conversation for the model: system
// message first, then the full history in original order, then the new user
// turn last.
func (c *Composer) BuildCompletionRequest(system string, history []domain.HistoryMessage, utterance string) []llm.Message {
	messages := make([]llm.Message, 0, len(history)+2)
	messages = append(messages, llm.Message{Role: string(domain.RoleSystem), Content: system})
	for _, h := range history {
		messages = append(messages, llm.Message{Role: string(h.Role), Content: h.Content})
	}
	messages = append(messages, llm.Message{Role: string(domain.RoleUser), Content: utterance})
	return messages
}

func appendEntryBlock(system, heading string, entries []domain.JournalEntry) string {
	if len(entries) == 0 {
		return system + "\n\n" + heading + "\n(no entries)"
	}

	var b strings.Builder
	b.WriteString(system)
	b.WriteString("\n\n")
	b.WriteString(heading)
	for _, entry := range entries {
		b.WriteString(fmt.Sprintf("\n- %s: %q", entry.Date.Format("Jan 2, 2006"), entry.Content))
		if entry.Mood != "" {
			b.WriteString(fmt.Sprintf(" (mood: %s)", entry.Mood))
		}
	}
	return b.String()
}
