// Package recall surfaces "on this day" memories at session start.
package recall

import (
	"context"
	"fmt"
	"log"
	"math/rand"
	"time"

	"github.com/anshulsoni4/whisper-well/domain"
)

// quoteLimit is how much of the past entry is quoted back.
const quoteLimit = 100

// EntrySource supplies anniversary entries.
type EntrySource interface {
	ListOnThisDay(ctx context.Context) []domain.JournalEntry
}

// Injector appends an assistant turn to a session outside the
// request/response cycle.
type Injector interface {
	Inject(sessionID, content string) (domain.Turn, error)
}

// Scheduler injects at most one memory turn per session start, after a fixed
// delay chosen to land after the welcome prompt.
type Scheduler struct {
	entries  EntrySource
	sessions Injector
	delay    time.Duration
	now      func() time.Time
	pick     func(n int) int
}

// NewScheduler creates a recall scheduler.
func NewScheduler(entries EntrySource, sessions Injector, delay time.Duration) *Scheduler {
	return &Scheduler{
		entries:  entries,
		sessions: sessions,
		delay:    delay,
		now:      time.Now,
		pick:     rand.Intn,
	}
}

// SessionStarted checks for anniversary entries and, if any exist, schedules
// one memory turn quoting a randomly chosen entry.
func (s *Scheduler) SessionStarted(ctx context.Context, sessionID string) {
	candidates := s.entries.ListOnThisDay(ctx)
	if len(candidates) == 0 {
		return
	}

	entry := candidates[s.pick(len(candidates))]
	yearsAgo := s.now().Year() - entry.Date.Year()

	time.AfterFunc(s.delay, func() {
		if _, err := s.sessions.Inject(sessionID, memoryMessage(entry, yearsAgo)); err != nil {
			// The session may have been reset while the timer ran.
			log.Printf("WARN: dropped memory turn for session %s: %v", sessionID, err)
		}
	})
}

func memoryMessage(entry domain.JournalEntry, yearsAgo int) string {
	quote := entry.Content
	if runes := []rune(quote); len(runes) > quoteLimit {
		quote = string(runes[:quoteLimit]) + "..."
	}

	plural := ""
	if yearsAgo > 1 {
		plural = "s"
	}
	return fmt.Sprintf("💫 On this day %d year%s ago, you wrote: \"%s\" Isn't it interesting to see how things change?", yearsAgo, plural, quote)
}
