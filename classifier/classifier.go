// Package classifier derives mood, tags and journaling prompts from entry
// text. Mood detection and prompt generation are best-effort remote calls;
// tag extraction is deterministic and offline.
package classifier

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/anshulsoni4/whisper-well/domain"
	"github.com/anshulsoni4/whisper-well/llm"
)

// vocabulary is the fixed list of emotion words scanned for tags. Matches are
// reported in vocabulary order, not input order.
var vocabulary = []string{
	"happy", "sad", "angry", "anxious", "excited", "tired", "grateful",
	"frustrated", "calm", "overwhelmed", "hopeful", "motivated", "inspired",
	"worried", "content", "stressed", "relaxed", "proud", "disappointed",
}

// maxTags caps how many tags one entry may carry.
const maxTags = 3

const (
	moodFallback   = "Thank you for sharing. Whatever you're feeling right now is okay. 💙"
	promptFallback = "What's on your mind today?"
)

// Result is the outcome of a best-effort classification call. Degraded is
// true when the remote call failed and Value is the fixed fallback.
type Result struct {
	Value    string
	Degraded bool
}

// Completer is the remote completion collaborator.
type Completer interface {
	Complete(ctx context.Context, messages []llm.Message) (string, error)
}

// Classifier derives mood metadata for journal entries.
type Classifier struct {
	completer Completer
	now       func() time.Time
}

// New creates a classifier backed by the given completion service.
func New(completer Completer) *Classifier {
	return &Classifier{completer: completer, now: time.Now}
}

// DetectMood produces one short, warm, emoji-tagged sentence describing the
// emotional tone of the text. Failures never block entry capture: the fixed
// fallback sentence is returned with Degraded set.
func (c *Classifier) DetectMood(ctx context.Context, text string) Result {
	messages := []llm.Message{
		{
			Role:    "system",
			Content: "You are a gentle journaling companion. Describe the emotional tone of the journal entry you are given in exactly one short, warm sentence, ending with a single fitting emoji. Address the writer directly.",
		},
		{
			Role:    "user",
			Content: text,
		},
	}

	mood, err := c.completer.Complete(ctx, messages)
	if err != nil {
		log.Printf("WARN: mood detection failed, using fallback: %v", err)
		return Result{Value: moodFallback, Degraded: true}
	}

	return Result{Value: strings.TrimSpace(mood)}
}

// ExtractTags scans the fixed emotion vocabulary (case-insensitive substring
// match) and returns the first matches in vocabulary order, at most three.
// This is an approximation, not NLP: synonyms are not covered.
func (c *Classifier) ExtractTags(text string) []string {
	lower := strings.ToLower(text)

	var tags []string
	for _, word := range vocabulary {
		if strings.Contains(lower, word) {
			tags = append(tags, word)
			if len(tags) == maxTags {
				break
			}
		}
	}
	return tags
}

// GeneratePrompt produces a journaling prompt informed by the current weekday
// and the moods of the given prior entries. On failure a fixed generic prompt
// is returned with Degraded set.
func (c *Classifier) GeneratePrompt(ctx context.Context, previous []domain.JournalEntry) Result {
	moods := make([]string, 0, len(previous))
	for _, entry := range previous {
		if entry.Mood != "" {
			moods = append(moods, entry.Mood)
		}
	}

	moodSummary := "a fresh start"
	if len(moods) > 0 {
		moodSummary = strings.Join(moods, ", ")
	}

	messages := []llm.Message{
		{
			Role:    "system",
			Content: "You are a gentle journaling companion. Offer exactly one short, open-ended journaling prompt as a single sentence. No preamble.",
		},
		{
			Role:    "user",
			Content: fmt.Sprintf("Today is %s. The writer's recent moods were: %s. What should they reflect on today?", c.now().Weekday(), moodSummary),
		},
	}

	prompt, err := c.completer.Complete(ctx, messages)
	if err != nil {
		log.Printf("WARN: prompt generation failed, using fallback: %v", err)
		return Result{Value: promptFallback, Degraded: true}
	}

	return Result{Value: strings.TrimSpace(prompt)}
}

// CommonThemes returns the tags that occur more than once across the given
// entries, in first-seen order.
func CommonThemes(entries []domain.JournalEntry) []string {
	counts := make(map[string]int)
	var order []string

	for _, entry := range entries {
		for _, tag := range entry.Tags {
			if counts[tag] == 0 {
				order = append(order, tag)
			}
			counts[tag]++
		}
	}

	var themes []string
	for _, tag := range order {
		if counts[tag] > 1 {
			themes = append(themes, tag)
		}
	}
	return themes
}
