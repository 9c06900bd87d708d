package postgres

import (
	"context"
	"strings"

	"github.com/jackc/pgx/v4"

	"levelquiz-service/internal/domain"
)

const resultColumns = `id, owner_id, owner_uid, owner_email, owner_name, username, quiz, level, score, created_at`

// ResultRepository persists quiz attempts. Results are append-only; only
// deletes mutate the table.
type ResultRepository struct {
	store *Store
}

func (r *ResultRepository) Insert(ctx context.Context, res domain.Result) error {
	if err := r.store.guard(); err != nil {
		return err
	}
	ctx, cancel := r.store.queryCtx(ctx)
	defer cancel()

	_, err := r.store.pool.Exec(ctx,
		`INSERT INTO results (`+resultColumns+`) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`,
		res.ID, res.OwnerID, res.OwnerUID, res.OwnerEmail, res.OwnerName,
		res.Username, res.Quiz, res.Level, res.Score, res.CreatedAt)
	return r.store.wrap("insert result", err)
}

func (r *ResultRepository) Get(ctx context.Context, id string) (domain.Result, error) {
	if err := r.store.guard(); err != nil {
		return domain.Result{}, err
	}
	ctx, cancel := r.store.queryCtx(ctx)
	defer cancel()

	row := r.store.pool.QueryRow(ctx, `SELECT `+resultColumns+` FROM results WHERE id = $1`, id)
	res, err := scanResult(row)
	if err != nil {
		return domain.Result{}, r.store.wrap("get result", err)
	}
	r.store.gate.MarkSuccess()
	return res, nil
}

func (r *ResultRepository) GetMany(ctx context.Context, ids []string) ([]domain.Result, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	if err := r.store.guard(); err != nil {
		return nil, err
	}
	ctx, cancel := r.store.queryCtx(ctx)
	defer cancel()

	rows, err := r.store.pool.Query(ctx,
		`SELECT `+resultColumns+` FROM results WHERE id = ANY($1) ORDER BY score DESC, created_at DESC`, ids)
	if err != nil {
		return nil, r.store.wrap("get results", err)
	}
	defer rows.Close()
	return scanResults(r.store, rows)
}

// Top ranks attempts by score descending, recency breaking ties. Category
// matching is case-insensitive; search is a case-insensitive substring
// match on the display username.
func (r *ResultRepository) Top(ctx context.Context, category, search string, limit int) ([]domain.Result, error) {
	if err := r.store.guard(); err != nil {
		return nil, err
	}
	ctx, cancel := r.store.queryCtx(ctx)
	defer cancel()

	rows, err := r.store.pool.Query(ctx,
		`SELECT `+resultColumns+` FROM results
		 WHERE ($1 = '' OR lower(quiz) = lower($1))
		   AND ($2 = '' OR username ILIKE '%' || $2 || '%')
		 ORDER BY score DESC, created_at DESC
		 LIMIT $3`,
		category, search, limit)
	if err != nil {
		return nil, r.store.wrap("rank results", err)
	}
	defer rows.Close()
	return scanResults(r.store, rows)
}

func (r *ResultRepository) ListByActor(ctx context.Context, actor domain.Actor) ([]domain.Result, error) {
	all, err := r.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	var out []domain.Result
	for _, res := range all {
		if actor.Owns(res.Ownership) {
			out = append(out, res)
		}
	}
	return out, nil
}

func (r *ResultRepository) ListAll(ctx context.Context) ([]domain.Result, error) {
	if err := r.store.guard(); err != nil {
		return nil, err
	}
	ctx, cancel := r.store.queryCtx(ctx)
	defer cancel()

	rows, err := r.store.pool.Query(ctx, `SELECT `+resultColumns+` FROM results ORDER BY created_at DESC`)
	if err != nil {
		return nil, r.store.wrap("list results", err)
	}
	defer rows.Close()
	return scanResults(r.store, rows)
}

func (r *ResultRepository) Delete(ctx context.Context, id string) error {
	if err := r.store.guard(); err != nil {
		return err
	}
	ctx, cancel := r.store.queryCtx(ctx)
	defer cancel()

	tag, err := r.store.pool.Exec(ctx, `DELETE FROM results WHERE id = $1`, id)
	if err != nil {
		return r.store.wrap("delete result", err)
	}
	r.store.gate.MarkSuccess()
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// DeleteByActor purges an actor's attempts, optionally scoped to one
// category. Candidate rows are matched in Go so the ownership rule stays in
// Actor.Owns; the ids are then removed in a single statement.
func (r *ResultRepository) DeleteByActor(ctx context.Context, actor domain.Actor, category string) error {
	mine, err := r.ListByActor(ctx, actor)
	if err != nil {
		return err
	}
	var ids []string
	for _, res := range mine {
		if category != "" && !strings.EqualFold(res.Quiz, category) {
			continue
		}
		ids = append(ids, res.ID)
	}
	if len(ids) == 0 {
		return nil
	}

	ctx, cancel := r.store.queryCtx(ctx)
	defer cancel()
	_, err = r.store.pool.Exec(ctx, `DELETE FROM results WHERE id = ANY($1)`, ids)
	return r.store.wrap("purge results", err)
}

func (r *ResultRepository) DeleteAll(ctx context.Context) error {
	if err := r.store.guard(); err != nil {
		return err
	}
	ctx, cancel := r.store.queryCtx(ctx)
	defer cancel()

	_, err := r.store.pool.Exec(ctx, `DELETE FROM results`)
	return r.store.wrap("clear results", err)
}

func scanResults(store *Store, rows pgx.Rows) ([]domain.Result, error) {
	var out []domain.Result
	for rows.Next() {
		res, err := scanResult(rows)
		if err != nil {
			return nil, store.wrap("scan result", err)
		}
		out = append(out, res)
	}
	if err := rows.Err(); err != nil {
		return nil, store.wrap("iterate results", err)
	}
	store.gate.MarkSuccess()
	return out, nil
}

func scanResult(row pgx.Row) (domain.Result, error) {
	var res domain.Result
	err := row.Scan(&res.ID, &res.OwnerID, &res.OwnerUID, &res.OwnerEmail, &res.OwnerName,
		&res.Username, &res.Quiz, &res.Level, &res.Score, &res.CreatedAt)
	return res, err
}
