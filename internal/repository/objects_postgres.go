package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/jyouni2001/LodgingSimulator-sub001/internal/models"
)

// PostgresObjectSource reads placed objects from a world_objects style table
//
//	handle TEXT, category TEXT, pos_x/pos_y/pos_z DOUBLE PRECISION, deleted_at TIMESTAMPTZ NULL
type PostgresObjectSource struct {
	db     *sql.DB
	table  string
	logger *zap.Logger
}

// NewPostgresObjectSource creates a source over table (default world_objects)
func NewPostgresObjectSource(db *sql.DB, table string, logger *zap.Logger) *PostgresObjectSource {
	if table == "" {
		table = "world_objects"
	}
	return &PostgresObjectSource{
		db:     db,
		table:  table,
		logger: logger,
	}
}

// GetObjects returns live objects tagged with category, ordered by handle
func (s *PostgresObjectSource) GetObjects(ctx context.Context, category models.Category) ([]models.WorldObject, error) {
	query := fmt.Sprintf(`
		SELECT handle, pos_x, pos_y, pos_z
		FROM %s
		WHERE category = $1
		  AND deleted_at IS NULL
		ORDER BY handle
	`, pq.QuoteIdentifier(s.table))

	rows, err := s.db.QueryContext(ctx, query, string(category))
	if err != nil {
		return nil, fmt.Errorf("failed to query world objects: %w", err)
	}
	defer rows.Close()

	var objects []models.WorldObject
	for rows.Next() {
		obj := models.WorldObject{Category: category}
		if err := rows.Scan(
			&obj.Handle,
			&obj.Position.X,
			&obj.Position.Y,
			&obj.Position.Z,
		); err != nil {
			return nil, fmt.Errorf("failed to scan world object: %w", err)
		}
		objects = append(objects, obj)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate world objects: %w", err)
	}

	s.logger.Debug("Loaded world objects",
		zap.String("category", string(category)),
		zap.Int("count", len(objects)),
	)
	return objects, nil
}
