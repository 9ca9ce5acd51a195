// Package session holds the in-memory conversation state and the
// orchestration connecting user input to journal capture or completion.
package session

import (
	"context"
	"errors"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/anshulsoni4/whisper-well/classifier"
	"github.com/anshulsoni4/whisper-well/composer"
	"github.com/anshulsoni4/whisper-well/domain"
	"github.com/anshulsoni4/whisper-well/llm"
	"github.com/anshulsoni4/whisper-well/store"
)

var (
	// ErrEmptyInput is returned for whitespace-only input. No turn is
	// created and nothing is surfaced to the user.
	ErrEmptyInput = errors.New("input is empty")

	// ErrBusy is returned when a completion request is already in flight
	// for the session.
	ErrBusy = errors.New("a response is already being generated")

	// ErrNotFound is returned for unknown session IDs.
	ErrNotFound = errors.New("session not found")
)

// journalModeNotice is surfaced once when journal mode is turned on.
const journalModeNotice = "Journal Mode activated. Your next message will be saved as a journal entry."

// welcomeFallback is used when prompt generation fails entirely.
const welcomeFallback = "Welcome to your journal. How are you feeling today?"

// state is one conversation session. turns and history grow only by append,
// in the same order; both are cleared only by Reset.
type state struct {
	mu          sync.Mutex
	id          string
	turns       []domain.Turn
	history     []domain.HistoryMessage
	journalMode bool
	awaiting    bool
	createdAt   time.Time
}

// Notifier pushes asynchronously produced turns to the connected client.
type Notifier interface {
	BroadcastJSON(sessionID string, v interface{}) error
}

// TurnEvent is the payload pushed over the notifier for injected turns.
type TurnEvent struct {
	Type string      `json:"type"`
	Turn domain.Turn `json:"turn"`
}

// Completer is the remote completion collaborator.
type Completer interface {
	Complete(ctx context.Context, messages []llm.Message) (string, error)
}

// Manager owns all live sessions. Sessions are explicit objects, not ambient
// state, so independent sessions can coexist.
type Manager struct {
	mu       sync.RWMutex
	sessions map[string]*state

	entries    *store.EntryStore
	classifier *classifier.Classifier
	composer   *composer.Composer
	completer  Completer
	notifier   Notifier
	now        func() time.Time
}

// NewManager creates a session manager.
func NewManager(entries *store.EntryStore, cls *classifier.Classifier, cmp *composer.Composer, completer Completer, notifier Notifier) *Manager {
	return &Manager{
		sessions:   make(map[string]*state),
		entries:    entries,
		classifier: cls,
		composer:   cmp,
		completer:  completer,
		notifier:   notifier,
		now:        time.Now,
	}
}

// Start creates a new session. When no entry has been written today, a
// generated journaling prompt is appended asynchronously as the initial
// assistant turn and pushed to the client.
func (m *Manager) Start(ctx context.Context) string {
	s := &state{
		id:        uuid.New().String(),
		createdAt: m.now(),
	}

	m.mu.Lock()
	m.sessions[s.id] = s
	m.mu.Unlock()

	if len(m.entries.ListToday(ctx)) == 0 {
		go m.sendWelcome(s.id)
	}

	return s.id
}

// sendWelcome generates the initial journaling prompt for a fresh day.
func (m *Manager) sendWelcome(sessionID string) {
	ctx := context.Background()

	content := welcomeFallback
	if result := m.classifier.GeneratePrompt(ctx, m.entries.List(ctx)); !result.Degraded {
		content = "Welcome to your journal. " + result.Value
	}

	if _, err := m.Inject(sessionID, content); err != nil {
		log.Printf("WARN: failed to deliver welcome prompt: %v", err)
	}
}

// Inject appends an assistant turn produced outside the request/response
// cycle (welcome prompt, recall memory) and pushes it to the client. The
// session may have been reset in the meantime; the turn is then dropped.
func (m *Manager) Inject(sessionID, content string) (domain.Turn, error) {
	s, err := m.get(sessionID)
	if err != nil {
		return domain.Turn{}, err
	}

	s.mu.Lock()
	turn := m.appendTurn(s, domain.RoleAssistant, content, nil)
	s.mu.Unlock()

	if m.notifier != nil {
		if err := m.notifier.BroadcastJSON(sessionID, TurnEvent{Type: "turn", Turn: turn}); err != nil {
			log.Printf("WARN: failed to push turn to session %s: %v", sessionID, err)
		}
	}
	return turn, nil
}

// HandleMessage processes one user submission and returns the resulting
// assistant turn. In journal mode the submission is captured as a journal
// entry; otherwise it is sent to the completion service with the full prior
// history.
func (m *Manager) HandleMessage(ctx context.Context, sessionID, content string) (domain.Turn, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return domain.Turn{}, ErrEmptyInput
	}

	s, err := m.get(sessionID)
	if err != nil {
		return domain.Turn{}, err
	}

	s.mu.Lock()
	if s.awaiting {
		s.mu.Unlock()
		return domain.Turn{}, ErrBusy
	}
	s.awaiting = true
	journalMode := s.journalMode
	prior := make([]domain.HistoryMessage, len(s.history))
	copy(prior, s.history)
	m.appendTurn(s, domain.RoleUser, content, nil)
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.awaiting = false
		s.mu.Unlock()
	}()

	if journalMode {
		return m.captureEntry(ctx, s, content)
	}
	return m.complete(ctx, s, prior, content)
}

// captureEntry persists the submission as a journal entry and answers with
// the detected mood. Classifier degradation never blocks capture; a
// persistence failure leaves journal mode on so the user can retry.
func (m *Manager) captureEntry(ctx context.Context, s *state, content string) (domain.Turn, error) {
	mood := m.classifier.DetectMood(ctx, content)
	tags := m.classifier.ExtractTags(content)

	if _, err := m.entries.Append(ctx, domain.JournalEntry{
		Content: content,
		Mood:    mood.Value,
		Tags:    tags,
	}); err != nil {
		log.Printf("ERROR: failed to save journal entry: %v", err)
		return domain.Turn{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	turn := m.appendTurn(s, domain.RoleAssistant, mood.Value, tags)
	s.journalMode = false // one-shot: consumed by the successful capture
	return turn, nil
}

// complete sends the utterance to the completion service. On failure the user
// turn stays in the log so a manual retry has context, and no assistant turn
// is appended.
func (m *Manager) complete(ctx context.Context, s *state, prior []domain.HistoryMessage, content string) (domain.Turn, error) {
	system := m.composer.BuildSystemMessage(ctx, content)
	messages := m.composer.BuildCompletionRequest(system, prior, content)

	reply, err := m.completer.Complete(ctx, messages)
	if err != nil {
		return domain.Turn{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return m.appendTurn(s, domain.RoleAssistant, reply, nil), nil
}

// ToggleJournalMode flips the sticky journal-mode flag. A notice is returned
// only when the flag turns on. No turns are created.
func (m *Manager) ToggleJournalMode(sessionID string) (bool, string, error) {
	s, err := m.get(sessionID)
	if err != nil {
		return false, "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.journalMode = !s.journalMode
	if s.journalMode {
		return true, journalModeNotice, nil
	}
	return false, "", nil
}

// Turns returns a copy of the session's ordered turn log.
func (m *Manager) Turns(sessionID string) ([]domain.Turn, error) {
	s, err := m.get(sessionID)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	turns := make([]domain.Turn, len(s.turns))
	copy(turns, s.turns)
	return turns, nil
}

// JournalMode reports the session's current mode flag.
func (m *Manager) JournalMode(sessionID string) (bool, error) {
	s, err := m.get(sessionID)
	if err != nil {
		return false, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.journalMode, nil
}

// History returns a copy of the mirrored role/content history.
func (m *Manager) History(sessionID string) ([]domain.HistoryMessage, error) {
	s, err := m.get(sessionID)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	history := make([]domain.HistoryMessage, len(s.history))
	copy(history, s.history)
	return history, nil
}

// Reset discards the session. In-flight callbacks targeting it are dropped
// when they resolve; nothing is cancelled.
func (m *Manager) Reset(sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.sessions[sessionID]; !ok {
		return ErrNotFound
	}
	delete(m.sessions, sessionID)
	return nil
}

// appendTurn appends a turn and mirrors it into history, preserving the
// invariant that both sequences grow together in the same order. Callers hold
// s.mu.
func (m *Manager) appendTurn(s *state, role domain.Role, content string, tags []string) domain.Turn {
	turn := domain.Turn{
		ID:        uuid.New().String(),
		Role:      role,
		Content:   content,
		Timestamp: m.now(),
		Tags:      tags,
	}
	s.turns = append(s.turns, turn)
	s.history = append(s.history, domain.HistoryMessage{Role: role, Content: content})
	return turn
}

func (m *Manager) get(sessionID string) (*state, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.sessions[sessionID]
	if !ok {
		return nil, ErrNotFound
	}
	return s, nil
}
