package quiz_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"levelquiz-service/internal/domain"
	"levelquiz-service/internal/quiz"
)

type fakeSource struct {
	batch []domain.Question
	err   error
}

func (f *fakeSource) QuestionsFor(context.Context, string, int) ([]domain.Question, error) {
	return f.batch, f.err
}

type fakeProgress struct {
	m   map[string]int
	err error
}

func (f *fakeProgress) ProgressFor(context.Context) (map[string]int, error) {
	return f.m, f.err
}

type recordedResult struct {
	category string
	level    int
	score    int
}

type fakeSink struct {
	results chan recordedResult
}

func newFakeSink() *fakeSink {
	return &fakeSink{results: make(chan recordedResult, 4)}
}

func (f *fakeSink) SubmitResult(_ context.Context, category string, level, score int) error {
	f.results <- recordedResult{category: category, level: level, score: score}
	return nil
}

func testBatch(n int) []domain.Question {
	batch := make([]domain.Question, n)
	for i := range batch {
		batch[i] = domain.Question{
			ID:       fmt.Sprintf("q%d", i),
			Quiz:     "Mathematics",
			Question: fmt.Sprintf("question %d", i),
			Options:  []string{"right", "wrong"},
			Answer:   "right",
			Level:    1,
		}
	}
	return batch
}

func testConfig() quiz.Config {
	return quiz.Config{
		QuestionsPerLevel: 10,
		PassingScore:      8,
		QuestionTime:      time.Minute, // long enough to never fire in tests
	}
}

func TestPassingScoreUnlocksNextLevel(t *testing.T) {
	sink := newFakeSink()
	s := quiz.NewSession(testConfig(), &fakeSource{batch: testBatch(10)}, &fakeProgress{m: map[string]int{}}, sink, nil)

	if err := s.Start(context.Background(), "Mathematics", 1); err != nil {
		t.Fatalf("start: %v", err)
	}
	// 8 right, 2 wrong.
	for i := 0; i < 10; i++ {
		answer := "right"
		if i >= 8 {
			answer = "wrong"
		}
		if err := s.Answer(answer); err != nil {
			t.Fatalf("answer %d: %v", i, err)
		}
	}

	snap := s.Snapshot()
	if snap.State != quiz.StateFinished {
		t.Fatalf("expected finished, got %s", snap.State)
	}
	if snap.Score != 8 || !snap.Passed {
		t.Fatalf("expected score 8 passed, got score %d passed %v", snap.Score, snap.Passed)
	}
	if len(snap.Breakdown) != 10 {
		t.Fatalf("expected breakdown of 10, got %d", len(snap.Breakdown))
	}
	if !snap.Breakdown[0].Right || snap.Breakdown[9].Right {
		t.Fatalf("breakdown rows do not match answers: %+v", snap.Breakdown)
	}
	if !quiz.Unlocked(s.Progress(), "Mathematics", 2) {
		t.Fatalf("expected level 2 unlocked after passing level 1")
	}

	select {
	case res := <-sink.results:
		if res.category != "Mathematics" || res.level != 1 || res.score != 8 {
			t.Fatalf("unexpected recorded result %+v", res)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("result was never submitted")
	}
}

func TestFailingScoreKeepsLevelLocked(t *testing.T) {
	s := quiz.NewSession(testConfig(), &fakeSource{batch: testBatch(10)}, &fakeProgress{m: map[string]int{}}, newFakeSink(), nil)

	if err := s.Start(context.Background(), "Mathematics", 1); err != nil {
		t.Fatalf("start: %v", err)
	}
	for i := 0; i < 10; i++ {
		answer := "right"
		if i >= 7 {
			answer = "wrong"
		}
		if err := s.Answer(answer); err != nil {
			t.Fatalf("answer %d: %v", i, err)
		}
	}

	snap := s.Snapshot()
	if snap.Score != 7 || snap.Passed {
		t.Fatalf("expected score 7 not passed, got score %d passed %v", snap.Score, snap.Passed)
	}
	if quiz.Unlocked(s.Progress(), "Mathematics", 2) {
		t.Fatalf("level 2 must stay locked at 7/10")
	}
}

func TestLockedLevelRejectsStart(t *testing.T) {
	s := quiz.NewSession(testConfig(), &fakeSource{batch: testBatch(10)}, &fakeProgress{m: map[string]int{}}, nil, nil)

	err := s.Start(context.Background(), "Mathematics", 2)
	if !errors.Is(err, quiz.ErrLevelLocked) {
		t.Fatalf("expected ErrLevelLocked, got %v", err)
	}
	if s.Snapshot().State != quiz.StateIdle {
		t.Fatalf("session must stay idle after rejected start")
	}
}

func TestProgressFetchFailureLocksEverythingAboveLevelOne(t *testing.T) {
	s := quiz.NewSession(testConfig(), &fakeSource{batch: testBatch(10)}, &fakeProgress{err: errors.New("store down")}, nil, nil)

	if err := s.Start(context.Background(), "Mathematics", 2); !errors.Is(err, quiz.ErrLevelLocked) {
		t.Fatalf("expected ErrLevelLocked, got %v", err)
	}
	// Level 1 still starts.
	if err := s.Start(context.Background(), "Mathematics", 1); err != nil {
		t.Fatalf("level 1 must start despite progress failure: %v", err)
	}
}

func TestShortBatchAbortsToIdle(t *testing.T) {
	s := quiz.NewSession(testConfig(), &fakeSource{batch: testBatch(7)}, &fakeProgress{m: map[string]int{}}, nil, nil)

	err := s.Start(context.Background(), "Mathematics", 1)
	if !errors.Is(err, quiz.ErrNotEnoughQuestions) {
		t.Fatalf("expected ErrNotEnoughQuestions, got %v", err)
	}
	if s.Snapshot().State != quiz.StateIdle {
		t.Fatalf("session must return to idle on short batch")
	}
}

func TestCountdownExpiryGradesUnanswered(t *testing.T) {
	cfg := testConfig()
	cfg.QuestionTime = 30 * time.Millisecond
	s := quiz.NewSession(cfg, &fakeSource{batch: testBatch(10)}, &fakeProgress{m: map[string]int{}}, nil, nil)

	updates, cancel := s.Subscribe()
	defer cancel()

	if err := s.Start(context.Background(), "Mathematics", 1); err != nil {
		t.Fatalf("start: %v", err)
	}
	for i := 0; i < 3; i++ {
		if err := s.Answer("right"); err != nil {
			t.Fatalf("answer %d: %v", i, err)
		}
	}

	// Question index 3 expires with no selection.
	deadline := time.After(2 * time.Second)
	for {
		var snap quiz.Snapshot
		select {
		case snap = <-updates:
		case <-deadline:
			t.Fatalf("countdown never advanced the frontier")
		}
		if snap.State == quiz.StateInQuestion && snap.Index == 4 {
			if snap.Score != 3 {
				t.Fatalf("expected score 3 after expiry, got %d", snap.Score)
			}
			return
		}
	}
}

func TestReviewCursorMovesWithoutGrading(t *testing.T) {
	s := quiz.NewSession(testConfig(), &fakeSource{batch: testBatch(10)}, &fakeProgress{m: map[string]int{}}, nil, nil)

	if err := s.Start(context.Background(), "Mathematics", 1); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := s.Answer("right"); err != nil {
		t.Fatalf("answer: %v", err)
	}
	if err := s.Answer("right"); err != nil {
		t.Fatalf("answer: %v", err)
	}

	if err := s.Previous(); err != nil {
		t.Fatalf("previous: %v", err)
	}
	snap := s.Snapshot()
	if snap.Cursor != 1 || snap.Index != 2 {
		t.Fatalf("expected cursor 1 frontier 2, got cursor %d frontier %d", snap.Cursor, snap.Index)
	}
	if snap.Question == nil || snap.Question.ID != "q1" {
		t.Fatalf("expected review of q1, got %+v", snap.Question)
	}

	// Answering while reviewing is rejected and grades nothing.
	if err := s.Answer("right"); !errors.Is(err, quiz.ErrReviewing) {
		t.Fatalf("expected ErrReviewing, got %v", err)
	}
	if got := s.Snapshot().Score; got != 2 {
		t.Fatalf("review must not change the score, got %d", got)
	}

	if err := s.Next(); err != nil {
		t.Fatalf("next: %v", err)
	}
	if err := s.Answer("right"); err != nil {
		t.Fatalf("answer after returning to frontier: %v", err)
	}
	if err := s.Next(); !errors.Is(err, quiz.ErrInvalidTransition) {
		t.Fatalf("next beyond frontier must fail, got %v", err)
	}
}

func TestRestartReturnsToIdleAndKeepsProgressCache(t *testing.T) {
	s := quiz.NewSession(testConfig(), &fakeSource{batch: testBatch(10)}, &fakeProgress{m: map[string]int{"mathematics": 1}}, nil, nil)

	if err := s.Start(context.Background(), "Mathematics", 2); err != nil {
		t.Fatalf("start level 2: %v", err)
	}
	s.Restart()
	snap := s.Snapshot()
	if snap.State != quiz.StateIdle || snap.Total != 0 || snap.Score != 0 {
		t.Fatalf("restart must clear the attempt, got %+v", snap)
	}
	if !quiz.Unlocked(s.Progress(), "Mathematics", 2) {
		t.Fatalf("progress cache must survive restart")
	}
	if err := s.Start(context.Background(), "Mathematics", 1); err != nil {
		t.Fatalf("start after restart: %v", err)
	}
}

func TestStartRejectsWhileRunning(t *testing.T) {
	s := quiz.NewSession(testConfig(), &fakeSource{batch: testBatch(10)}, &fakeProgress{m: map[string]int{}}, nil, nil)

	if err := s.Start(context.Background(), "Mathematics", 1); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := s.Start(context.Background(), "Nature", 1); !errors.Is(err, quiz.ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}
}
