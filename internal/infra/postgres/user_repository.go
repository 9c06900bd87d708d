package postgres

import (
	"context"
	"strings"

	"levelquiz-service/internal/domain"
)

const userColumns = `id, name, email, password_hash, created_at`

// UserRepository persists locally registered accounts.
type UserRepository struct {
	store *Store
}

func (r *UserRepository) Create(ctx context.Context, u domain.User) error {
	if err := r.store.guard(); err != nil {
		return err
	}
	ctx, cancel := r.store.queryCtx(ctx)
	defer cancel()

	_, err := r.store.pool.Exec(ctx,
		`INSERT INTO users (`+userColumns+`) VALUES ($1,$2,$3,$4,$5)`,
		u.ID, u.Name, strings.ToLower(u.Email), u.PasswordHash, u.CreatedAt)
	return r.store.wrap("insert user", err)
}

func (r *UserRepository) FindByEmail(ctx context.Context, email string) (domain.User, error) {
	if err := r.store.guard(); err != nil {
		return domain.User{}, err
	}
	ctx, cancel := r.store.queryCtx(ctx)
	defer cancel()

	row := r.store.pool.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE email = $1`, strings.ToLower(email))
	var u domain.User
	if err := row.Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.CreatedAt); err != nil {
		return domain.User{}, r.store.wrap("find user by email", err)
	}
	r.store.gate.MarkSuccess()
	return u, nil
}

func (r *UserRepository) FindByID(ctx context.Context, id string) (domain.User, error) {
	if err := r.store.guard(); err != nil {
		return domain.User{}, err
	}
	ctx, cancel := r.store.queryCtx(ctx)
	defer cancel()

	row := r.store.pool.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	var u domain.User
	if err := row.Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.CreatedAt); err != nil {
		return domain.User{}, r.store.wrap("find user by id", err)
	}
	r.store.gate.MarkSuccess()
	return u, nil
}

// Delete removes a user row; used by the admin purge.
func (r *UserRepository) Delete(ctx context.Context, id string) error {
	if err := r.store.guard(); err != nil {
		return err
	}
	ctx, cancel := r.store.queryCtx(ctx)
	defer cancel()

	tag, err := r.store.pool.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return r.store.wrap("delete user", err)
	}
	r.store.gate.MarkSuccess()
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}
