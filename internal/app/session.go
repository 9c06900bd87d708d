package app

import (
	"context"
	"log/slog"

	"levelquiz-service/internal/domain"
	"levelquiz-service/internal/quiz"
)

// NewQuizSession builds a session machine bound to one actor: questions come
// through the question service's store-first path, progress and finished
// attempts go through the result service under the actor's identity.
func NewQuizSession(cfg quiz.Config, actor domain.Actor, questions *QuestionService, results *ResultService, logger *slog.Logger) *quiz.Session {
	binding := &actorBinding{actor: actor, questions: questions, results: results}
	return quiz.NewSession(cfg, binding, binding, binding, logger)
}

// actorBinding adapts the actor-scoped services to the session machine's
// narrow source/sink interfaces.
type actorBinding struct {
	actor     domain.Actor
	questions *QuestionService
	results   *ResultService
}

func (b *actorBinding) QuestionsFor(ctx context.Context, category string, level int) ([]domain.Question, error) {
	return b.questions.QuestionsFor(ctx, category, level)
}

func (b *actorBinding) ProgressFor(ctx context.Context) (map[string]int, error) {
	return b.results.ProgressFor(ctx, b.actor)
}

func (b *actorBinding) SubmitResult(ctx context.Context, category string, level, score int) error {
	_, err := b.results.Record(ctx, b.actor, category, level, score)
	return err
}
