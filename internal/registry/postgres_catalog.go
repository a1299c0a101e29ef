package registry

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"
)

// CatalogStore abstracts DB queries for testability.
type CatalogStore interface {
	ListTools(ctx context.Context) ([]*catalogRow, error)
}

type catalogRow struct {
	ToolName       string
	Category       string
	Description    sql.NullString
	Classification sql.NullString
	SideEffect     bool
	Endpoint       sql.NullString
	Parameters     string // JSONB array as string
}

// sqlCatalogStore is the real implementation using *sql.DB.
type sqlCatalogStore struct {
	db *sql.DB
}

func (s *sqlCatalogStore) ListTools(ctx context.Context) ([]*catalogRow, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT tool_name, category, description, classification,
		       side_effect, endpoint, parameters
		FROM tool_catalog
		ORDER BY tool_name
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*catalogRow
	for rows.Next() {
		var r catalogRow
		if err := rows.Scan(
			&r.ToolName, &r.Category, &r.Description, &r.Classification,
			&r.SideEffect, &r.Endpoint, &r.Parameters,
		); err != nil {
			return nil, err
		}
		out = append(out, &r)
	}
	return out, rows.Err()
}

// PostgresCatalogSource loads the tool catalog from the tool_catalog table.
// Unlike the per-request stores elsewhere, this runs exactly once at startup;
// the registry is immutable afterwards.
type PostgresCatalogSource struct {
	store  CatalogStore
	logger *zap.Logger
}

// NewPostgresCatalogSource creates a catalog source backed by db.
func NewPostgresCatalogSource(db *sql.DB, logger *zap.Logger) *PostgresCatalogSource {
	return &PostgresCatalogSource{store: &sqlCatalogStore{db: db}, logger: logger}
}

// newPostgresCatalogSourceWithStore creates a source with a custom store (for testing).
func newPostgresCatalogSourceWithStore(store CatalogStore, logger *zap.Logger) *PostgresCatalogSource {
	return &PostgresCatalogSource{store: store, logger: logger}
}

// LoadAll fetches every catalog row and registers it. Returns the number
// of tools registered.
func (s *PostgresCatalogSource) LoadAll(ctx context.Context, r *Registry) (int, error) {
	rows, err := s.store.ListTools(ctx)
	if err != nil {
		return 0, fmt.Errorf("LoadAll: %w", err)
	}

	registered := 0
	for _, row := range rows {
		d, err := parseCatalogRow(row)
		if err != nil {
			s.logger.Warn("skipping malformed catalog row",
				zap.String("tool_name", row.ToolName),
				zap.Error(err),
			)
			continue
		}
		if err := r.Register(d); err != nil {
			return registered, fmt.Errorf("LoadAll: %w", err)
		}
		registered++
	}
	return registered, nil
}

func parseCatalogRow(row *catalogRow) (*ToolDescriptor, error) {
	d := &ToolDescriptor{
		Name:       row.ToolName,
		Category:   row.Category,
		SideEffect: row.SideEffect,
	}
	if row.Description.Valid {
		d.Description = row.Description.String
	}
	if row.Classification.Valid {
		d.Classification = Classification(row.Classification.String)
	}
	if row.Endpoint.Valid {
		d.Endpoint = row.Endpoint.String
	}

	if row.Parameters != "" && row.Parameters != "[]" {
		if err := json.Unmarshal([]byte(row.Parameters), &d.Parameters); err != nil {
			return nil, fmt.Errorf("parseCatalogRow: parameters: %w", err)
		}
	}
	return d, nil
}
