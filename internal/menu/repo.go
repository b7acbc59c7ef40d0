// Package menu provides the menu store: repository interface, PostgreSQL
// implementation and the service holding the availability business rules.
package menu

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Repository interface {
	List(ctx context.Context) ([]Item, error)
	GetByID(ctx context.Context, id string) (*Item, error)
	Create(ctx context.Context, it *Item) error
	Update(ctx context.Context, it *Item) error
	// Toggle flips is_available atomically and returns the full updated row.
	Toggle(ctx context.Context, id string) (*Item, error)
	// Delete removes the row and returns it so the caller can release the
	// image blob.
	Delete(ctx context.Context, id string) (*Item, error)
	// Availability reports is_available per name; names that do not resolve
	// to a menu item are absent from the result.
	Availability(ctx context.Context, names []string) (map[string]bool, error)
	// Categories resolves item names to their category for sales logging.
	Categories(ctx context.Context, names []string) (map[string]string, error)
}

type PGRepo struct{ db *pgxpool.Pool }

func NewPGRepo(db *pgxpool.Pool) *PGRepo { return &PGRepo{db: db} }

// EnsureSchema creates the menu table if it does not exist yet.
func (r *PGRepo) EnsureSchema(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	_, err := r.db.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS menu (
			id VARCHAR(255) PRIMARY KEY,
			name VARCHAR(100) NOT NULL,
			category VARCHAR(50) NOT NULL,
			image VARCHAR(255),
			is_available BOOLEAN DEFAULT TRUE
		)
	`)
	return err
}

func (r *PGRepo) List(ctx context.Context) ([]Item, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	rows, err := r.db.Query(ctx, `
		SELECT id, name, category, COALESCE(image,''), is_available
		FROM menu ORDER BY name ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Item
	for rows.Next() {
		var it Item
		if err := rows.Scan(&it.ID, &it.Name, &it.Category, &it.Image, &it.IsAvailable); err != nil {
			return nil, err
		}
		out = append(out, it)
	}
	return out, rows.Err()
}

func (r *PGRepo) GetByID(ctx context.Context, id string) (*Item, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var it Item
	err := r.db.QueryRow(ctx, `
		SELECT id, name, category, COALESCE(image,''), is_available
		FROM menu WHERE id=$1
	`, id).Scan(&it.ID, &it.Name, &it.Category, &it.Image, &it.IsAvailable)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &it, nil
}

func (r *PGRepo) Create(ctx context.Context, it *Item) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	_, err := r.db.Exec(ctx, `
		INSERT INTO menu (id, name, category, image, is_available)
		VALUES ($1,$2,$3,$4,$5)
	`, it.ID, it.Name, it.Category, it.Image, it.IsAvailable)
	return err
}

func (r *PGRepo) Update(ctx context.Context, it *Item) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	tag, err := r.db.Exec(ctx, `
		UPDATE menu
		SET name = COALESCE(NULLIF($2,''), name),
		    category = COALESCE(NULLIF($3,''), category),
		    image = $4
		WHERE id = $1
	`, it.ID, it.Name, it.Category, it.Image)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PGRepo) Toggle(ctx context.Context, id string) (*Item, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var it Item
	err := r.db.QueryRow(ctx, `
		UPDATE menu SET is_available = NOT is_available
		WHERE id = $1
		RETURNING id, name, category, COALESCE(image,''), is_available
	`, id).Scan(&it.ID, &it.Name, &it.Category, &it.Image, &it.IsAvailable)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &it, nil
}

func (r *PGRepo) Delete(ctx context.Context, id string) (*Item, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var it Item
	err := r.db.QueryRow(ctx, `
		DELETE FROM menu WHERE id = $1
		RETURNING id, name, category, COALESCE(image,''), is_available
	`, id).Scan(&it.ID, &it.Name, &it.Category, &it.Image, &it.IsAvailable)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &it, nil
}

func (r *PGRepo) Availability(ctx context.Context, names []string) (map[string]bool, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	rows, err := r.db.Query(ctx, `
		SELECT name, is_available FROM menu WHERE name = ANY($1::text[])
	`, names)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string]bool, len(names))
	for rows.Next() {
		var name string
		var avail bool
		if err := rows.Scan(&name, &avail); err != nil {
			return nil, err
		}
		out[name] = avail
	}
	return out, rows.Err()
}

func (r *PGRepo) Categories(ctx context.Context, names []string) (map[string]string, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	rows, err := r.db.Query(ctx, `
		SELECT name, category FROM menu WHERE name = ANY($1::text[])
	`, names)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string]string, len(names))
	for rows.Next() {
		var name, category string
		if err := rows.Scan(&name, &category); err != nil {
			return nil, err
		}
		out[name] = category
	}
	return out, rows.Err()
}
