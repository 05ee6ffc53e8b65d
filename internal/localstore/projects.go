package localstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Lllllllleong/bookcastflow/internal/models"
	"github.com/Lllllllleong/bookcastflow/internal/pipeline"
	"github.com/google/uuid"
)

const projectColumns = "id, filename, file_hash, page_count, status, error_details, created_at, updated_at"

func (s *Store) FindProject(ctx context.Context, id string) (*models.Project, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+projectColumns+` FROM projects WHERE id = ?`, id)
	p, err := scanProject(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("project %s: %w", id, pipeline.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get project %s: %w", id, err)
	}
	return p, nil
}

// FindProjectByHash returns the oldest project uploaded with fileHash.
func (s *Store) FindProjectByHash(ctx context.Context, fileHash string) (*models.Project, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+projectColumns+` FROM projects WHERE file_hash = ? ORDER BY created_at LIMIT 1`,
		fileHash,
	)
	p, err := scanProject(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("project with hash %s: %w", fileHash, pipeline.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("find project by hash: %w", err)
	}
	return p, nil
}

// CreateProject assigns a fresh ID to p and inserts it.
func (s *Store) CreateProject(ctx context.Context, p *models.Project) error {
	id := uuid.NewString()
	_, err := s.execWithRetry(ctx,
		`INSERT INTO projects (`+projectColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		id,
		p.Filename,
		nullableString(p.FileHash),
		p.PageCount,
		p.Status,
		nullableString(p.ErrorDetails),
		formatTime(p.CreatedAt),
		formatTime(p.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("insert project: %w", err)
	}
	p.ID = id
	return nil
}

// UpdateProject overwrites every stored field of p.
func (s *Store) UpdateProject(ctx context.Context, p *models.Project) error {
	if p.ID == "" {
		return errors.New("update project: missing id")
	}
	res, err := s.execWithRetry(ctx,
		`UPDATE projects
         SET filename = ?, file_hash = ?, page_count = ?, status = ?, error_details = ?,
             created_at = ?, updated_at = ?
         WHERE id = ?`,
		p.Filename,
		nullableString(p.FileHash),
		p.PageCount,
		p.Status,
		nullableString(p.ErrorDetails),
		formatTime(p.CreatedAt),
		formatTime(p.UpdatedAt),
		p.ID,
	)
	if err != nil {
		return fmt.Errorf("update project %s: %w", p.ID, err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return fmt.Errorf("update project %s: %w", p.ID, pipeline.ErrNotFound)
	}
	return nil
}

// ListProjects returns every project, newest first.
func (s *Store) ListProjects(ctx context.Context) ([]*models.Project, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+projectColumns+` FROM projects ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	defer rows.Close()

	var out []*models.Project
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func scanProject(scanner interface{ Scan(dest ...any) error }) (*models.Project, error) {
	var (
		p            models.Project
		status       string
		fileHash     sql.NullString
		errorDetails sql.NullString
		createdRaw   sql.NullString
		updatedRaw   sql.NullString
	)
	if err := scanner.Scan(
		&p.ID,
		&p.Filename,
		&fileHash,
		&p.PageCount,
		&status,
		&errorDetails,
		&createdRaw,
		&updatedRaw,
	); err != nil {
		return nil, err
	}
	p.Status = models.Status(status)
	p.FileHash = fileHash.String
	p.ErrorDetails = errorDetails.String
	p.CreatedAt = parseTime(createdRaw.String)
	p.UpdatedAt = parseTime(updatedRaw.String)
	return &p, nil
}
