package localstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/Lllllllleong/bookcastflow/internal/models"
	"github.com/Lllllllleong/bookcastflow/internal/pipeline"
)

const chapterColumns = "id, project_id, chapter_number, title, start_page, end_page, extracted_text, script, segment_count, status, created_at, updated_at"

const upsertChapter = `INSERT INTO chapters (` + chapterColumns + `)
    VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
    ON CONFLICT(id) DO UPDATE SET
        project_id = excluded.project_id,
        chapter_number = excluded.chapter_number,
        title = excluded.title,
        start_page = excluded.start_page,
        end_page = excluded.end_page,
        extracted_text = excluded.extracted_text,
        script = excluded.script,
        segment_count = excluded.segment_count,
        status = excluded.status,
        created_at = excluded.created_at,
        updated_at = excluded.updated_at`

func chapterArgs(c *models.Chapter) []any {
	return []any{
		c.ID,
		c.ProjectID,
		c.ChapterNumber,
		nullableString(c.Title),
		c.StartPage,
		c.EndPage,
		nullableString(c.ExtractedText),
		nullableString(c.Script),
		c.SegmentCount,
		c.Status,
		formatTime(c.CreatedAt),
		formatTime(c.UpdatedAt),
	}
}

// SelectChaptersByProjectID returns the chapters ordered by chapter number.
func (s *Store) SelectChaptersByProjectID(ctx context.Context, projectID string) ([]*models.Chapter, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+chapterColumns+` FROM chapters WHERE project_id = ? ORDER BY chapter_number`,
		projectID,
	)
	if err != nil {
		return nil, fmt.Errorf("list chapters: %w", err)
	}
	defer rows.Close()

	var out []*models.Chapter
	for rows.Next() {
		ch, err := scanChapter(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, ch)
	}
	return out, rows.Err()
}

func (s *Store) UpdateChapter(ctx context.Context, c *models.Chapter) error {
	if c.ID == "" {
		return errors.New("update chapter: missing id")
	}
	if _, err := s.execWithRetry(ctx, upsertChapter, chapterArgs(c)...); err != nil {
		return fmt.Errorf("update chapter %s: %w", c.ID, err)
	}
	return nil
}

// BulkCreateChapters writes every chapter in one transaction. Chapters with
// an existing ID are overwritten.
func (s *Store) BulkCreateChapters(ctx context.Context, chapters []*models.Chapter) error {
	return retryOnBusy(ctx, func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin chapter tx: %w", err)
		}
		defer func() { _ = tx.Rollback() }()

		stmt, err := tx.PrepareContext(ctx, upsertChapter)
		if err != nil {
			return fmt.Errorf("prepare chapter insert: %w", err)
		}
		defer stmt.Close()

		for _, ch := range chapters {
			if ch.ID == "" {
				ch.ID = models.ChapterID(ch.ProjectID, ch.ChapterNumber)
			}
			if _, err := stmt.ExecContext(ctx, chapterArgs(ch)...); err != nil {
				if isForeignKeyViolation(err) {
					return fmt.Errorf("chapter %s: project %s: %w", ch.ID, ch.ProjectID, pipeline.ErrNotFound)
				}
				return fmt.Errorf("insert chapter %s: %w", ch.ID, err)
			}
		}
		return tx.Commit()
	})
}

func isForeignKeyViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "FOREIGN KEY constraint failed")
}

func scanChapter(scanner interface{ Scan(dest ...any) error }) (*models.Chapter, error) {
	var (
		ch         models.Chapter
		status     string
		title      sql.NullString
		text       sql.NullString
		script     sql.NullString
		createdRaw sql.NullString
		updatedRaw sql.NullString
	)
	if err := scanner.Scan(
		&ch.ID,
		&ch.ProjectID,
		&ch.ChapterNumber,
		&title,
		&ch.StartPage,
		&ch.EndPage,
		&text,
		&script,
		&ch.SegmentCount,
		&status,
		&createdRaw,
		&updatedRaw,
	); err != nil {
		return nil, err
	}
	ch.Status = models.Status(status)
	ch.Title = title.String
	ch.ExtractedText = text.String
	ch.Script = script.String
	ch.CreatedAt = parseTime(createdRaw.String)
	ch.UpdatedAt = parseTime(updatedRaw.String)
	return &ch, nil
}
