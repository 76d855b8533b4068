package repository

import (
	"context"
	"database/sql"
	"fmt"

	"threadwatch/internal/logger"
	"threadwatch/internal/models"
)

// ChannelRepository handles the supplemental per-channel metadata rows.
type ChannelRepository struct {
	db     *sql.DB
	logger logger.Logger
}

func NewChannelRepository(db *sql.DB, log logger.Logger) *ChannelRepository {
	return &ChannelRepository{
		db:     db,
		logger: log,
	}
}

// UpsertDescription stores the latest fetched description for a channel,
// keyed by name. Unlike posts, the row is always overwritten.
func (r *ChannelRepository) UpsertDescription(ctx context.Context, name, description string) error {
	query := `
		INSERT INTO channels (name, description, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (name) DO UPDATE SET
			description = EXCLUDED.description,
			updated_at = NOW()
	`

	if _, err := r.db.ExecContext(ctx, query, name, description); err != nil {
		return fmt.Errorf("upsert channel description: %w", err)
	}
	return nil
}

// List returns all known channels ordered by name.
func (r *ChannelRepository) List(ctx context.Context) ([]models.Channel, error) {
	query := `
		SELECT name, description, updated_at
		FROM channels
		ORDER BY name
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query channels: %w", err)
	}
	defer rows.Close()

	channels := make([]models.Channel, 0)
	for rows.Next() {
		var ch models.Channel
		if err := rows.Scan(&ch.Name, &ch.Description, &ch.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan channel: %w", err)
		}
		channels = append(channels, ch)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate channels: %w", err)
	}
	return channels, nil
}
