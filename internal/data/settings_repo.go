package data

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/target/filetrack-api/internal/core"
	"github.com/target/filetrack-api/internal/data/pgxutil"
	"github.com/target/filetrack-api/internal/domain/model"
)

// SettingsRepo provides database operations for tags and the path schema.
type SettingsRepo struct {
	DB *sql.DB
}

var _ core.SettingsRepository = (*SettingsRepo)(nil)

// NewSettingsRepo creates a new SettingsRepo.
func NewSettingsRepo(db *sql.DB) *SettingsRepo {
	return &SettingsRepo{DB: db}
}

// ListTags returns all tags ordered by name.
func (r *SettingsRepo) ListTags(ctx context.Context) ([]model.Tag, error) {
	var tags []model.Tag
	err := pgxutil.WithQuerier(ctx, r.DB, func(q pgxutil.Querier) error {
		rows, err := q.Query(ctx, `SELECT id, name, mandatory FROM tags ORDER BY name, id`)
		if err != nil {
			return err
		}
		tags, err = pgx.CollectRows(rows, pgx.RowToStructByName[model.Tag])
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("list tags: %w", err)
	}
	return tags, nil
}

// GetTag returns one tag or ErrTagNotFound.
func (r *SettingsRepo) GetTag(ctx context.Context, id string) (*model.Tag, error) {
	var tag model.Tag
	err := pgxutil.WithQuerier(ctx, r.DB, func(q pgxutil.Querier) error {
		rows, err := q.Query(ctx, `SELECT id, name, mandatory FROM tags WHERE id = $1`, id)
		if err != nil {
			return err
		}
		tag, err = pgx.CollectOneRow(rows, pgx.RowToStructByName[model.Tag])
		return err
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrTagNotFound
		}
		return nil, fmt.Errorf("get tag: %w", err)
	}
	return &tag, nil
}

// ApplyTagChanges adds, updates and deletes tags in one transaction.
func (r *SettingsRepo) ApplyTagChanges(ctx context.Context, changes model.TagChanges) error {
	if changes.Empty() {
		return nil
	}
	return pgxutil.WithPgxTx(ctx, r.DB, pgxutil.TxConfig{Fn: func(tx pgx.Tx) error {
		for _, t := range changes.Delete {
			if _, err := tx.Exec(ctx, `DELETE FROM tags WHERE id = $1`, t.ID); err != nil {
				if isForeignKeyViolation(err) {
					return fmt.Errorf("delete tag %q: %w", t.ID, ErrTagInUse)
				}
				return fmt.Errorf("delete tag %q: %w", t.ID, err)
			}
		}
		for _, t := range changes.Update {
			ct, err := tx.Exec(ctx, `UPDATE tags SET name = $2, mandatory = $3 WHERE id = $1`,
				t.ID, t.Name, t.Mandatory)
			if err != nil {
				return fmt.Errorf("update tag %q: %w", t.ID, err)
			}
			if ct.RowsAffected() == 0 {
				return fmt.Errorf("update tag %q: %w", t.ID, ErrTagNotFound)
			}
		}
		for _, t := range changes.Add {
			if _, err := tx.Exec(ctx, `INSERT INTO tags (id, name, mandatory) VALUES ($1, $2, $3)`,
				t.ID, t.Name, t.Mandatory); err != nil {
				return fmt.Errorf("insert tag %q: %w", t.ID, err)
			}
		}
		return nil
	}})
}

// GetPathSchema returns the path members ordered by position.
func (r *SettingsRepo) GetPathSchema(ctx context.Context) ([]model.PathMember, error) {
	var members []model.PathMember
	err := pgxutil.WithQuerier(ctx, r.DB, func(q pgxutil.Querier) error {
		rows, err := q.Query(ctx, `SELECT id, position FROM path_schema ORDER BY position`)
		if err != nil {
			return err
		}
		members, err = pgx.CollectRows(rows, pgx.RowToStructByName[model.PathMember])
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("get path schema: %w", err)
	}
	return members, nil
}

// ReplacePathSchema removes every path member and inserts members in one transaction.
func (r *SettingsRepo) ReplacePathSchema(ctx context.Context, members []model.PathMember) error {
	return pgxutil.WithPgxTx(ctx, r.DB, pgxutil.TxConfig{Fn: func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM path_schema`); err != nil {
			return fmt.Errorf("clear path schema: %w", err)
		}
		for _, m := range members {
			if _, err := tx.Exec(ctx, `INSERT INTO path_schema (id, position) VALUES ($1, $2)`,
				m.ID, m.Order); err != nil {
				if isForeignKeyViolation(err) {
					return fmt.Errorf("path member %q: %w", m.ID, ErrUnknownPathTag)
				}
				return fmt.Errorf("insert path member %q: %w", m.ID, err)
			}
		}
		return nil
	}})
}
