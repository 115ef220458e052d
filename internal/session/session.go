// Package session implements a single student's run through the
// configured test: login, navigable answering, a one-second countdown,
// and one-shot submission.
package session

import (
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/schoolgenius/schoolgenius/internal/model"
)

// State represents the session lifecycle state.
type State string

const (
	StateLogin      State = "login"
	StateInProgress State = "in_progress"
	StateSubmitted  State = "submitted"
)

var (
	ErrNameRequired   = errors.New("student name is required")
	ErrNoQuestions    = errors.New("no questions available")
	ErrAlreadyStarted = errors.New("session already started")
	ErrNotInProgress  = errors.New("session is not in progress")
	ErrInvalidOption  = errors.New("option index out of range")
)

// Recorder persists the outcome of a submitted session.
type Recorder interface {
	Record(studentName string, questions []model.Question, answers []int, subject model.Subject) (model.StudentResult, error)
}

// Session is a single student's attempt at the configured test. All
// methods serialize on an internal mutex, so countdown ticks and user
// actions never interleave mid-transition.
type Session struct {
	mu       sync.Mutex
	state    State
	settings model.TestSettings
	recorder Recorder

	studentName string
	current     int
	answers     []int
	remaining   int // seconds

	result model.StudentResult

	stop    chan struct{}
	stopped bool
	ticking bool
}

// New creates a session over a frozen snapshot of settings. Later admin
// edits to the stored settings never affect this session.
func New(settings model.TestSettings, recorder Recorder) *Session {
	settings.Questions = model.CopyQuestions(settings.Questions)
	return &Session{
		state:    StateLogin,
		settings: settings,
		recorder: recorder,
		stop:     make(chan struct{}),
	}
}

// Start moves the session from login to in-progress. It fails unless the
// trimmed student name is non-empty and the question snapshot has at
// least one question. A duration that leaves zero remaining time submits
// the session immediately.
func (s *Session) Start(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateLogin {
		return ErrAlreadyStarted
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return ErrNameRequired
	}
	if len(s.settings.Questions) == 0 {
		return ErrNoQuestions
	}

	s.studentName = name
	s.current = 0
	s.answers = make([]int, len(s.settings.Questions))
	for i := range s.answers {
		s.answers[i] = model.Unanswered
	}
	s.remaining = s.settings.DurationMinutes * 60
	s.state = StateInProgress

	if s.remaining <= 0 {
		s.remaining = 0
		if _, err := s.submitLocked(); err != nil {
			return err
		}
	}
	return nil
}

// StartCountdown launches the one-second countdown. It is a no-op unless
// the session is in progress, and at most one countdown runs per session.
func (s *Session) StartCountdown() {
	s.mu.Lock()
	if s.state != StateInProgress || s.ticking {
		s.mu.Unlock()
		return
	}
	s.ticking = true
	stop := s.stop
	s.mu.Unlock()

	go func() {
		ticker := time.NewTicker(time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				s.Tick()
			}
		}
	}()
}

// Tick consumes one second of remaining time. When the remaining time
// reaches zero the session is force-submitted, exactly as if the student
// had submitted manually. Ticks after leaving in-progress are no-ops.
func (s *Session) Tick() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateInProgress {
		return
	}
	s.remaining--
	if s.remaining > 0 {
		return
	}
	s.remaining = 0
	if _, err := s.submitLocked(); err != nil {
		slog.Error("timed auto-submit failed", "student", s.studentName, "error", err)
	}
}

// SelectOption records option idx as the answer to the current question,
// overwriting any prior answer for it. The current index never moves.
func (s *Session) SelectOption(idx int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateInProgress {
		return ErrNotInProgress
	}
	if idx < 0 || idx >= len(s.settings.Questions[s.current].Options) {
		return ErrInvalidOption
	}
	s.answers[s.current] = idx
	return nil
}

// Next advances to the following question. At the last question it is a
// no-op; the index never leaves the valid range.
func (s *Session) Next() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateInProgress {
		return
	}
	if s.current < len(s.settings.Questions)-1 {
		s.current++
	}
}

// Previous moves back one question. At index zero it is a no-op.
func (s *Session) Previous() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateInProgress {
		return
	}
	if s.current > 0 {
		s.current--
	}
}

// Submit finishes the session: the countdown stops, the score is
// computed, and the result is recorded. Submit is one-shot; once the
// session is submitted further calls return the already-recorded result
// without invoking the recorder again. A persistence failure leaves the
// session in progress so the student can retry.
func (s *Session) Submit() (model.StudentResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.state {
	case StateSubmitted:
		return s.result, nil
	case StateInProgress:
		return s.submitLocked()
	default:
		return model.StudentResult{}, ErrNotInProgress
	}
}

func (s *Session) submitLocked() (model.StudentResult, error) {
	s.stopCountdownLocked()
	res, err := s.recorder.Record(s.studentName, s.settings.Questions, s.answers, s.settings.Subject)
	if err != nil {
		return model.StudentResult{}, err
	}
	s.result = res
	s.state = StateSubmitted
	return res, nil
}

// Stop tears the session down without recording anything. No countdown
// tick fires after Stop returns. Safe to call repeatedly.
func (s *Session) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopCountdownLocked()
}

func (s *Session) stopCountdownLocked() {
	if !s.stopped {
		close(s.stop)
		s.stopped = true
	}
}

// State returns the current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// StudentName returns the name given at login.
func (s *Session) StudentName() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.studentName
}

// CurrentIndex returns the 0-based index of the question on display.
func (s *Session) CurrentIndex() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// CurrentQuestion returns the question at the current index.
func (s *Session) CurrentQuestion() model.Question {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.settings.Questions[s.current]
}

// QuestionCount returns the number of questions in the snapshot.
func (s *Session) QuestionCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.settings.Questions)
}

// Answers returns a copy of the selected-option slots, Unanswered where
// no option was picked.
func (s *Session) Answers() []int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]int(nil), s.answers...)
}

// Remaining returns the remaining time in seconds.
func (s *Session) Remaining() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.remaining
}

// Result returns the recorded result, valid once the session is submitted.
func (s *Session) Result() (model.StudentResult, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.result, s.state == StateSubmitted
}
