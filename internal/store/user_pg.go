package store

import (
	"context"
	"errors"

	"libtrack/internal/entity"
	"libtrack/internal/usecase"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type UserPG struct {
	db *pgxpool.Pool
}

func NewUserPG(db *pgxpool.Pool) *UserPG {
	return &UserPG{db: db}
}

func (r *UserPG) Create(ctx context.Context, user *entity.User) error {
	const query = `
	INSERT INTO users (id, email, username, password, role, library_barcode, library_pin, library_account_id)
	VALUES (gen_random_uuid(), $1, $2, $3, COALESCE(NULLIF($4, ''), 'USER'), $5, $6, $7)
	RETURNING id, role, created_at, updated_at
	`
	return r.db.QueryRow(ctx, query,
		user.Email,
		user.Username,
		user.Password,
		user.Role,
		user.LibraryBarcode,
		user.LibraryPIN,
		user.LibraryAccountID,
	).Scan(&user.ID, &user.Role, &user.CreatedAt, &user.UpdatedAt)
}

func (r *UserPG) GetByEmail(ctx context.Context, email string) (entity.User, error) {
	const query = `
	SELECT id, email, username, password, role, library_barcode, library_pin, library_account_id, created_at, updated_at
	FROM users
	WHERE email = $1
	LIMIT 1
	`
	return r.getOne(ctx, query, email)
}

func (r *UserPG) GetByID(ctx context.Context, id string) (entity.User, error) {
	const query = `
	SELECT id, email, username, password, role, library_barcode, library_pin, library_account_id, created_at, updated_at
	FROM users
	WHERE id = $1
	LIMIT 1
	`
	return r.getOne(ctx, query, id)
}

func (r *UserPG) UpdateLibraryCredentials(ctx context.Context, userID, barcode, pin, accountID string) error {
	const query = `
	UPDATE users SET library_barcode = $2, library_pin = $3, library_account_id = $4, updated_at = now()
	WHERE id = $1
	`
	tag, err := r.db.Exec(ctx, query, userID, barcode, pin, accountID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return usecase.ErrNotFound
	}
	return nil
}

func (r *UserPG) getOne(ctx context.Context, query string, arg any) (entity.User, error) {
	var user entity.User
	err := r.db.QueryRow(ctx, query, arg).Scan(
		&user.ID,
		&user.Email,
		&user.Username,
		&user.Password,
		&user.Role,
		&user.LibraryBarcode,
		&user.LibraryPIN,
		&user.LibraryAccountID,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return entity.User{}, usecase.ErrNotFound
		}
		return entity.User{}, err
	}
	return user, nil
}
