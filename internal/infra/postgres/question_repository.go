package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v4"

	"levelquiz-service/internal/domain"
)

const questionColumns = `id, quiz, question, options, answer, level, owner_id, owner_uid, owner_email, owner_name, created_at`

// QuestionRepository persists questions. Ownership filtering happens in Go
// through Actor.Owns so the matching rule lives in exactly one place.
type QuestionRepository struct {
	store *Store
}

func (r *QuestionRepository) ListByCategory(ctx context.Context, category string, level int) ([]domain.Question, error) {
	if err := r.store.guard(); err != nil {
		return nil, err
	}
	ctx, cancel := r.store.queryCtx(ctx)
	defer cancel()

	rows, err := r.store.pool.Query(ctx,
		`SELECT `+questionColumns+` FROM questions WHERE lower(quiz) = lower($1) AND level = $2 ORDER BY created_at`,
		category, level)
	if err != nil {
		return nil, r.store.wrap("list questions", err)
	}
	defer rows.Close()
	return scanQuestions(r.store, rows)
}

func (r *QuestionRepository) ListOwnedBy(ctx context.Context, actor domain.Actor) ([]domain.Question, error) {
	owned, err := r.ListOwned(ctx)
	if err != nil {
		return nil, err
	}
	var out []domain.Question
	for _, q := range owned {
		if actor.Owns(q.Ownership) {
			out = append(out, q)
		}
	}
	return out, nil
}

// ListOwned returns every question carrying ownership fields; seed rows are
// excluded.
func (r *QuestionRepository) ListOwned(ctx context.Context) ([]domain.Question, error) {
	if err := r.store.guard(); err != nil {
		return nil, err
	}
	ctx, cancel := r.store.queryCtx(ctx)
	defer cancel()

	rows, err := r.store.pool.Query(ctx,
		`SELECT `+questionColumns+` FROM questions
		 WHERE owner_id <> '' OR owner_uid <> '' OR owner_email <> '' OR owner_name <> ''
		 ORDER BY created_at DESC`)
	if err != nil {
		return nil, r.store.wrap("list owned questions", err)
	}
	defer rows.Close()
	return scanQuestions(r.store, rows)
}

func (r *QuestionRepository) Get(ctx context.Context, id string) (domain.Question, error) {
	if err := r.store.guard(); err != nil {
		return domain.Question{}, err
	}
	ctx, cancel := r.store.queryCtx(ctx)
	defer cancel()

	row := r.store.pool.QueryRow(ctx,
		`SELECT `+questionColumns+` FROM questions WHERE id = $1`, id)
	q, err := scanQuestion(row)
	if err != nil {
		return domain.Question{}, r.store.wrap("get question", err)
	}
	r.store.gate.MarkSuccess()
	return q, nil
}

func (r *QuestionRepository) Create(ctx context.Context, q domain.Question) error {
	if err := r.store.guard(); err != nil {
		return err
	}
	ctx, cancel := r.store.queryCtx(ctx)
	defer cancel()

	opts, err := json.Marshal(q.Options)
	if err != nil {
		return fmt.Errorf("encode options: %w", err)
	}
	_, err = r.store.pool.Exec(ctx,
		`INSERT INTO questions (`+questionColumns+`) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)`,
		q.ID, q.Quiz, q.Question, opts, q.Answer, q.Level,
		q.OwnerID, q.OwnerUID, q.OwnerEmail, q.OwnerName, q.CreatedAt)
	return r.store.wrap("insert question", err)
}

func (r *QuestionRepository) Update(ctx context.Context, q domain.Question) error {
	if err := r.store.guard(); err != nil {
		return err
	}
	ctx, cancel := r.store.queryCtx(ctx)
	defer cancel()

	opts, err := json.Marshal(q.Options)
	if err != nil {
		return fmt.Errorf("encode options: %w", err)
	}
	tag, err := r.store.pool.Exec(ctx,
		`UPDATE questions SET quiz=$2, question=$3, options=$4, answer=$5, level=$6 WHERE id=$1`,
		q.ID, q.Quiz, q.Question, opts, q.Answer, q.Level)
	if err != nil {
		return r.store.wrap("update question", err)
	}
	r.store.gate.MarkSuccess()
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *QuestionRepository) Delete(ctx context.Context, id string) error {
	if err := r.store.guard(); err != nil {
		return err
	}
	ctx, cancel := r.store.queryCtx(ctx)
	defer cancel()

	tag, err := r.store.pool.Exec(ctx, `DELETE FROM questions WHERE id = $1`, id)
	if err != nil {
		return r.store.wrap("delete question", err)
	}
	r.store.gate.MarkSuccess()
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// DeleteAllOwned removes every owned question, preserving seed content.
func (r *QuestionRepository) DeleteAllOwned(ctx context.Context) error {
	if err := r.store.guard(); err != nil {
		return err
	}
	ctx, cancel := r.store.queryCtx(ctx)
	defer cancel()

	_, err := r.store.pool.Exec(ctx,
		`DELETE FROM questions WHERE owner_id <> '' OR owner_uid <> '' OR owner_email <> '' OR owner_name <> ''`)
	return r.store.wrap("delete owned questions", err)
}

func scanQuestions(store *Store, rows pgx.Rows) ([]domain.Question, error) {
	var out []domain.Question
	for rows.Next() {
		q, err := scanQuestion(rows)
		if err != nil {
			return nil, store.wrap("scan question", err)
		}
		out = append(out, q)
	}
	if err := rows.Err(); err != nil {
		return nil, store.wrap("iterate questions", err)
	}
	store.gate.MarkSuccess()
	return out, nil
}

func scanQuestion(row pgx.Row) (domain.Question, error) {
	var q domain.Question
	var opts []byte
	if err := row.Scan(&q.ID, &q.Quiz, &q.Question, &opts, &q.Answer, &q.Level,
		&q.OwnerID, &q.OwnerUID, &q.OwnerEmail, &q.OwnerName, &q.CreatedAt); err != nil {
		return domain.Question{}, err
	}
	if err := json.Unmarshal(opts, &q.Options); err != nil {
		return domain.Question{}, fmt.Errorf("decode options: %w", err)
	}
	return q, nil
}
