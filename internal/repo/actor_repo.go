// Package repo implements the persistence layer for stored actors and
// idempotency records. This file provides repository functions for the
// Actor model, the concrete account store behind the federation core.
//
// All functions are context-aware and accept a *gorm.DB handle so they can
// run inside transactions. They follow the "thin repository" approach: no
// business logic, only CRUD persistence and query composition.
//
// Error semantics:
//   - When an actor is not found, functions return ErrNotFound
//     (an alias of gorm.ErrRecordNotFound).
//   - Other DB errors are propagated unchanged.
//
// Handles are stored lower-cased; lookups lower-case their argument.
package repo

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"

	"github.com/tbourn/go-fedi-core/internal/domain"
)

// ErrNotFound is returned when a requested record does not exist.
// It aliases gorm.ErrRecordNotFound for convenience and consistency
// across the service layer and handlers.
var ErrNotFound = gorm.ErrRecordNotFound

func normalizeHandle(handle string) string {
	return strings.ToLower(strings.TrimSpace(handle))
}

// SaveActor inserts or replaces the stored document for handle.
func SaveActor(ctx context.Context, db *gorm.DB, handle, nickname string, doc domain.ActorDocument) (*domain.Actor, error) {
	handle = normalizeHandle(handle)
	var out *domain.Actor
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// a soft-deleted row for the handle is revived rather than duplicated
		var a domain.Actor
		err := tx.Unscoped().Where("handle = ?", handle).First(&a).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			a = domain.Actor{Handle: handle, Nickname: nickname}
		case err != nil:
			return err
		}
		if err := a.SetDocument(doc); err != nil {
			return err
		}
		a.DeletedAt = gorm.DeletedAt{}
		if err := tx.Unscoped().Save(&a).Error; err != nil {
			return err
		}
		out = &a
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// GetActor fetches the stored actor for handle, or ErrNotFound.
func GetActor(ctx context.Context, db *gorm.DB, handle string) (*domain.Actor, error) {
	var a domain.Actor
	err := db.WithContext(ctx).
		Where("handle = ?", normalizeHandle(handle)).
		First(&a).Error
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// ActorExists reports whether a stored actor exists for handle.
func ActorExists(ctx context.Context, db *gorm.DB, handle string) (bool, error) {
	var n int64
	err := db.WithContext(ctx).
		Model(&domain.Actor{}).
		Where("handle = ?", normalizeHandle(handle)).
		Count(&n).Error
	return n > 0, err
}

// ListActorHandles returns a page of handles ordered by creation time
// ascending. The caller computes offset and limit.
func ListActorHandles(ctx context.Context, db *gorm.DB, offset, limit int) ([]string, error) {
	var out []string
	err := db.WithContext(ctx).
		Model(&domain.Actor{}).
		Order("created_at asc, id asc").
		Offset(offset).
		Limit(limit).
		Pluck("handle", &out).Error
	return out, err
}

// CountActors returns the number of stored (non-deleted) actors.
func CountActors(ctx context.Context, db *gorm.DB) (int64, error) {
	var total int64
	err := db.WithContext(ctx).Model(&domain.Actor{}).Count(&total).Error
	return total, err
}

// DeleteActor soft-deletes the actor for handle. It returns ErrNotFound
// when nothing was deleted.
func DeleteActor(ctx context.Context, db *gorm.DB, handle string) error {
	res := db.WithContext(ctx).
		Where("handle = ?", normalizeHandle(handle)).
		Delete(&domain.Actor{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
