// Package quiz implements the quiz-session state machine: loading a
// question batch, advancing through questions under a per-question
// countdown, grading answers, and deriving level-unlock eligibility.
package quiz

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"levelquiz-service/internal/domain"
)

// State is the machine's current phase. Grading is passed through
// synchronously but still surfaces as a snapshot so observers see every
// transition.
type State int

const (
	StateIdle State = iota
	StateLoading
	StateInQuestion
	StateGrading
	StateFinished
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateLoading:
		return "loading"
	case StateInQuestion:
		return "in_question"
	case StateGrading:
		return "grading"
	case StateFinished:
		return "finished"
	}
	return "unknown"
}

var (
	// ErrLevelLocked rejects starting a level whose predecessor has not been passed.
	ErrLevelLocked = errors.New("level is locked")
	// ErrNotEnoughQuestions aborts loading when the category/level cannot fill a batch.
	ErrNotEnoughQuestions = errors.New("not enough questions for this level")
	// ErrInvalidTransition is returned for events the current state does not accept.
	ErrInvalidTransition = errors.New("invalid session transition")
	// ErrReviewing rejects answering while the cursor is parked on an earlier question.
	ErrReviewing = errors.New("return to the current question before answering")
)

// QuestionSource loads one level's question batch.
type QuestionSource interface {
	QuestionsFor(ctx context.Context, category string, level int) ([]domain.Question, error)
}

// ProgressSource fetches the actor's per-category max passed level.
type ProgressSource interface {
	ProgressFor(ctx context.Context) (map[string]int, error)
}

// ResultSink records a finished attempt. Submission is best-effort; a
// failing sink never blocks the score screen.
type ResultSink interface {
	SubmitResult(ctx context.Context, category string, level, score int) error
}

// Config fixes the per-level batch size, the pass bar and the per-question
// countdown duration.
type Config struct {
	QuestionsPerLevel int
	PassingScore      int
	QuestionTime      time.Duration
}

func DefaultConfig() Config {
	return Config{
		QuestionsPerLevel: domain.QuestionsPerLevel,
		PassingScore:      domain.PassingScore,
		QuestionTime:      10 * time.Second,
	}
}

// Review is one row of the per-question breakdown shown on the score screen.
type Review struct {
	Question string `json:"question"`
	Given    string `json:"given"`
	Correct  string `json:"correct"`
	Right    bool   `json:"right"`
}

// Snapshot is an immutable view of the session emitted on every transition.
type Snapshot struct {
	State     State     `json:"state"`
	Category  string    `json:"category,omitempty"`
	Level     int       `json:"level,omitempty"`
	Index     int       `json:"index"`
	Cursor    int       `json:"cursor"`
	Total     int       `json:"total"`
	Score     int       `json:"score"`
	Passed    bool      `json:"passed"`
	Deadline  time.Time `json:"deadline,omitempty"`
	Question  *domain.Question
	Breakdown []Review `json:"breakdown,omitempty"`
}

// Session drives one quiz attempt. All session state lives here and is
// updated only through transitions; there is exactly one active countdown
// while a question is open, cancelled and replaced on every transition.
type Session struct {
	cfg      Config
	source   QuestionSource
	progress ProgressSource
	sink     ResultSink
	logger   *slog.Logger
	now      func() time.Time

	mu          sync.Mutex
	state       State
	category    string
	level       int
	questions   []domain.Question
	frontier    int // index being answered; strictly increases by 1 per grading
	cursor      int // review position, <= frontier
	score       int
	answers     []string
	passed      bool
	cache       map[string]int // category -> max passed level, server-refreshed on start
	deadline    time.Time
	timer       *time.Timer
	timerGen    int
	subscribers map[chan Snapshot]struct{}
}

func NewSession(cfg Config, source QuestionSource, progress ProgressSource, sink ResultSink, logger *slog.Logger) *Session {
	if cfg.QuestionsPerLevel <= 0 {
		cfg.QuestionsPerLevel = domain.QuestionsPerLevel
	}
	if cfg.PassingScore <= 0 {
		cfg.PassingScore = domain.PassingScore
	}
	if cfg.QuestionTime <= 0 {
		cfg.QuestionTime = 10 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Session{
		cfg:         cfg,
		source:      source,
		progress:    progress,
		sink:        sink,
		logger:      logger,
		now:         time.Now,
		state:       StateIdle,
		cache:       make(map[string]int),
		subscribers: make(map[chan Snapshot]struct{}),
	}
}

// Unlocked reports whether a level is playable given per-category progress.
// Level 1 is always unlocked; level L>1 requires maxPassedLevel >= L-1.
func Unlocked(progress map[string]int, category string, level int) bool {
	if level <= 1 {
		return true
	}
	return progress[strings.ToLower(category)] >= level-1
}

// Start guards on level unlock, fetches the batch and opens question 0.
// A locked level or a short batch leaves the session in Idle.
func (s *Session) Start(ctx context.Context, category string, level int) error {
	s.mu.Lock()
	if s.state != StateIdle {
		s.mu.Unlock()
		return fmt.Errorf("%w: start from %s", ErrInvalidTransition, s.state)
	}
	if level < 1 {
		level = 1
	}
	s.state = StateLoading
	s.category = category
	s.level = level
	s.broadcastLocked()
	s.mu.Unlock()

	// Refresh progress from the server before the unlock check; a failed
	// fetch leaves the map empty, locking everything except level 1.
	fresh, err := s.progress.ProgressFor(ctx)
	if err != nil {
		s.logger.Warn("progress fetch failed, treating levels as locked", slog.String("error", err.Error()))
		fresh = map[string]int{}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateLoading {
		return fmt.Errorf("%w: session reset during load", ErrInvalidTransition)
	}
	s.cache = normalizeProgress(fresh)
	if !Unlocked(s.cache, category, level) {
		s.resetLocked(StateIdle)
		return fmt.Errorf("%w: pass level %d of %s first", ErrLevelLocked, level-1, category)
	}

	s.mu.Unlock()
	batch, err := s.source.QuestionsFor(ctx, category, level)
	s.mu.Lock()
	if s.state != StateLoading {
		return fmt.Errorf("%w: session reset during load", ErrInvalidTransition)
	}
	if err != nil {
		s.resetLocked(StateIdle)
		return fmt.Errorf("load questions: %w", err)
	}
	if len(batch) < s.cfg.QuestionsPerLevel {
		s.resetLocked(StateIdle)
		return fmt.Errorf("%w: have %d, need %d", ErrNotEnoughQuestions, len(batch), s.cfg.QuestionsPerLevel)
	}

	s.questions = batch[:s.cfg.QuestionsPerLevel]
	s.frontier = 0
	s.cursor = 0
	s.score = 0
	s.passed = false
	s.answers = make([]string, s.cfg.QuestionsPerLevel)
	s.state = StateInQuestion
	s.armCountdownLocked()
	s.broadcastLocked()
	return nil
}

// Answer grades the selected option for the frontier question. The cursor
// must be at the frontier; reviewing never grades.
func (s *Session) Answer(option string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateInQuestion {
		return fmt.Errorf("%w: answer in %s", ErrInvalidTransition, s.state)
	}
	if s.cursor != s.frontier {
		return ErrReviewing
	}
	s.cancelCountdownLocked()
	s.gradeLocked(option)
	return nil
}

// Previous moves the review cursor back one question. The frontier
// countdown keeps running; expiry while reviewing grades the frontier as
// unanswered.
func (s *Session) Previous() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateInQuestion {
		return fmt.Errorf("%w: previous in %s", ErrInvalidTransition, s.state)
	}
	if s.cursor == 0 {
		return fmt.Errorf("%w: already at the first question", ErrInvalidTransition)
	}
	s.cursor--
	s.broadcastLocked()
	return nil
}

// Next moves the review cursor forward toward the frontier.
func (s *Session) Next() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateInQuestion {
		return fmt.Errorf("%w: next in %s", ErrInvalidTransition, s.state)
	}
	if s.cursor >= s.frontier {
		return fmt.Errorf("%w: already at the current question", ErrInvalidTransition)
	}
	s.cursor++
	s.broadcastLocked()
	return nil
}

// Restart discards all session state and returns to Idle. The progress
// cache survives so unlock feedback stays immediate.
func (s *Session) Restart() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.resetLocked(StateIdle)
	s.broadcastLocked()
}

// Snapshot returns the current state without waiting for a transition.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Progress returns the session's local view of per-category max passed
// levels, including any optimistic raise from a just-passed level.
func (s *Session) Progress() map[string]int {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]int, len(s.cache))
	for k, v := range s.cache {
		out[k] = v
	}
	return out
}

// Subscribe returns a channel receiving a snapshot on every transition.
// The caller must invoke the returned cancel function to avoid leaks.
func (s *Session) Subscribe() (<-chan Snapshot, func()) {
	ch := make(chan Snapshot, 16)
	s.mu.Lock()
	s.subscribers[ch] = struct{}{}
	s.mu.Unlock()
	cancel := func() {
		s.mu.Lock()
		if _, ok := s.subscribers[ch]; ok {
			delete(s.subscribers, ch)
			close(ch)
		}
		s.mu.Unlock()
	}
	return ch, cancel
}

// gradeLocked runs the Grading(i) transition: record the (possibly empty)
// answer, bump the score on an exact match, then advance or finish.
func (s *Session) gradeLocked(given string) {
	q := s.questions[s.frontier]
	s.state = StateGrading
	s.answers[s.frontier] = given
	if given != "" && given == q.Answer {
		s.score++
	}
	s.broadcastLocked()

	s.frontier++
	s.cursor = s.frontier
	if s.frontier < len(s.questions) {
		s.state = StateInQuestion
		s.armCountdownLocked()
		s.broadcastLocked()
		return
	}
	s.finishLocked()
}

func (s *Session) finishLocked() {
	s.state = StateFinished
	s.passed = s.score >= s.cfg.PassingScore
	key := strings.ToLower(s.category)
	if s.passed && s.level > s.cache[key] {
		// Optimistic local unlock; the server recomputes from results on
		// the next progress fetch.
		s.cache[key] = s.level
	}
	s.broadcastLocked()

	if s.sink == nil {
		return
	}
	category, level, score := s.category, s.level, s.score
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.sink.SubmitResult(ctx, category, level, score); err != nil {
			s.logger.Warn("result submission failed",
				slog.String("category", category),
				slog.Int("level", level),
				slog.String("error", err.Error()),
			)
		}
	}()
}

// timeout fires when the countdown for generation gen reaches zero. A
// stale generation means the question was already answered or the session
// moved on; the event is dropped.
func (s *Session) timeout(gen int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateInQuestion || gen != s.timerGen {
		return
	}
	s.cursor = s.frontier
	s.gradeLocked("")
}

func (s *Session) armCountdownLocked() {
	s.cancelCountdownLocked()
	s.timerGen++
	gen := s.timerGen
	s.deadline = s.now().Add(s.cfg.QuestionTime)
	s.timer = time.AfterFunc(s.cfg.QuestionTime, func() { s.timeout(gen) })
}

func (s *Session) cancelCountdownLocked() {
	s.timerGen++
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.deadline = time.Time{}
}

func (s *Session) resetLocked(to State) {
	s.cancelCountdownLocked()
	s.state = to
	s.category = ""
	s.level = 0
	s.questions = nil
	s.frontier = 0
	s.cursor = 0
	s.score = 0
	s.passed = false
	s.answers = nil
}

func (s *Session) snapshotLocked() Snapshot {
	snap := Snapshot{
		State:    s.state,
		Category: s.category,
		Level:    s.level,
		Index:    s.frontier,
		Cursor:   s.cursor,
		Total:    len(s.questions),
		Score:    s.score,
		Passed:   s.passed,
		Deadline: s.deadline,
	}
	if s.state == StateInQuestion && s.cursor < len(s.questions) {
		q := s.questions[s.cursor]
		snap.Question = &q
	}
	if s.state == StateFinished {
		snap.Breakdown = make([]Review, len(s.questions))
		for i, q := range s.questions {
			snap.Breakdown[i] = Review{
				Question: q.Question,
				Given:    s.answers[i],
				Correct:  q.Answer,
				Right:    s.answers[i] == q.Answer,
			}
		}
	}
	return snap
}

func (s *Session) broadcastLocked() {
	snap := s.snapshotLocked()
	for ch := range s.subscribers {
		select {
		case ch <- snap:
		default: // slow subscriber, drop rather than stall the machine
		}
	}
}

func normalizeProgress(in map[string]int) map[string]int {
	out := make(map[string]int, len(in))
	for k, v := range in {
		out[strings.ToLower(k)] = v
	}
	return out
}
