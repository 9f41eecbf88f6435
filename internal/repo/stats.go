package repo

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/tbourn/go-fedi-core/internal/domain"
)

// ActorsStats returns the number of stored actors and the greatest
// UpdatedAt among them. It feeds the nodeinfo usage block and the
// Last-Modified header of that document. With no rows, maxUpdatedAt is nil.
func ActorsStats(ctx context.Context, db *gorm.DB) (count int64, maxUpdatedAt *time.Time, err error) {
	q := db.WithContext(ctx).Model(&domain.Actor{})

	if err = q.Count(&count).Error; err != nil {
		return 0, nil, err
	}
	if count == 0 {
		return 0, nil, nil
	}

	// Get latest updated_at (avoid MAX() -> TEXT in SQLite)
	var row struct {
		UpdatedAt time.Time
	}
	if err = q.Select("updated_at").Order("updated_at DESC").Limit(1).Scan(&row).Error; err != nil {
		return 0, nil, err
	}
	return count, &row.UpdatedAt, nil
}

// ActiveActorsSince counts actors whose document changed at or after since.
func ActiveActorsSince(ctx context.Context, db *gorm.DB, since time.Time) (int64, error) {
	var n int64
	err := db.WithContext(ctx).
		Model(&domain.Actor{}).
		Where("updated_at >= ?", since).
		Count(&n).Error
	return n, err
}
