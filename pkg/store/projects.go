package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// CreateProject inserts a new project owned by ownerID.
func (s *Store) CreateProject(ctx context.Context, name, code, ownerID string) (*Project, error) {
	now := time.Now().UTC()
	project := &Project{
		ID:        uuid.NewString(),
		Name:      name,
		Code:      code,
		OwnerID:   ownerID,
		CreatedAt: now,
		UpdatedAt: now,
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO projects (id, name, code, owner_id, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)`,
		project.ID, project.Name, project.Code, project.OwnerID, project.CreatedAt, project.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("store: create project: %w", err)
	}
	return project, nil
}

// FindProject looks a project up by id. Returns ErrNotFound when absent;
// callers on the live channel treat any failure as "no bootstrap code".
func (s *Store) FindProject(ctx context.Context, id string) (*Project, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, name, code, owner_id, created_at, updated_at FROM projects WHERE id = ?`, id)

	var p Project
	err := row.Scan(&p.ID, &p.Name, &p.Code, &p.OwnerID, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("store: scan project: %w", err)
	}
	return &p, nil
}

// ListProjectsByOwner returns all projects owned by ownerID, newest first.
func (s *Store) ListProjectsByOwner(ctx context.Context, ownerID string) ([]*Project, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, code, owner_id, created_at, updated_at FROM projects
		 WHERE owner_id = ? ORDER BY created_at DESC`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("store: list projects: %w", err)
	}
	defer rows.Close()

	projects := make([]*Project, 0)
	for rows.Next() {
		var p Project
		if err := rows.Scan(&p.ID, &p.Name, &p.Code, &p.OwnerID, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("store: scan project: %w", err)
		}
		projects = append(projects, &p)
	}
	return projects, rows.Err()
}

// UpdateProjectCode replaces a project's code snapshot.
func (s *Store) UpdateProjectCode(ctx context.Context, id, code string) (*Project, error) {
	result, err := s.db.ExecContext(ctx,
		`UPDATE projects SET code = ?, updated_at = ? WHERE id = ?`,
		code, time.Now().UTC(), id)
	if err != nil {
		return nil, fmt.Errorf("store: update project: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("store: update project: %w", err)
	}
	if affected == 0 {
		return nil, ErrNotFound
	}
	return s.FindProject(ctx, id)
}

// DeleteProject removes a project by id.
func (s *Store) DeleteProject(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM projects WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("store: delete project: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("store: delete project: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}
