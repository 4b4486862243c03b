package document

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
)

type pgRepo struct {
	db *sql.DB
}

func NewPgRepo(db *sql.DB) Repo {
	return &pgRepo{db: db}
}

func (r *pgRepo) Create(ctx context.Context, ref Reference) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO documents (id, kind, url, s3_key, name, content_type, size_bytes, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, ref.ID, string(ref.Kind), ref.URL, nullIfEmpty(ref.Key), ref.Name, ref.ContentType, ref.Size, ref.CreatedAt)
	return err
}

func (r *pgRepo) Get(ctx context.Context, id uuid.UUID) (Reference, error) {
	var (
		ref  Reference
		kind string
		key  sql.NullString
	)
	err := r.db.QueryRowContext(ctx, `
		SELECT id, kind, url, s3_key, name, content_type, size_bytes, created_at
		FROM documents
		WHERE id = $1
	`, id).Scan(&ref.ID, &kind, &ref.URL, &key, &ref.Name, &ref.ContentType, &ref.Size, &ref.CreatedAt)

	if err == sql.ErrNoRows {
		return Reference{}, ErrNotFound
	}
	if err != nil {
		return Reference{}, err
	}
	ref.Kind = Kind(kind)
	ref.Key = key.String
	return ref, nil
}

func (r *pgRepo) List(ctx context.Context) ([]Reference, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, kind, url, s3_key, name, content_type, size_bytes, created_at
		FROM documents
		ORDER BY created_at DESC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var refs []Reference
	for rows.Next() {
		var (
			ref  Reference
			kind string
			key  sql.NullString
		)
		if err := rows.Scan(
			&ref.ID,
			&kind,
			&ref.URL,
			&key,
			&ref.Name,
			&ref.ContentType,
			&ref.Size,
			&ref.CreatedAt,
		); err != nil {
			return nil, err
		}
		ref.Kind = Kind(kind)
		ref.Key = key.String
		refs = append(refs, ref)
	}
	return refs, rows.Err()
}

func (r *pgRepo) Delete(ctx context.Context, id uuid.UUID) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM documents WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *pgRepo) HasKey(ctx context.Context, key string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx, `
		SELECT EXISTS (SELECT 1 FROM documents WHERE s3_key = $1)
	`, key).Scan(&exists)
	return exists, err
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}
