// Package repo implements the persistence adapter for table sessions. This
// file provides key/value style access to TableSessionRecord and
// DeviceBinding rows.
//
// The adapter exposes get/set/remove semantics over the session envelope:
// every write re-serializes the full aggregate, and a read past the record's
// expiry window behaves exactly like a missing record (the expired row is
// removed in passing). Higher layers never see an "expired" error; per the
// error design an expired session is silently treated as absent.
//
// Error semantics:
//   - ErrNotFound (aliasing gorm.ErrRecordNotFound) for missing or expired
//     records and bindings.
//   - Raw gorm errors are propagated for storage failures; the session store
//     logs them and keeps its in-memory aggregate authoritative.
package repo

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tavolo/go-table-backend/internal/domain"
)

// ErrNotFound is returned when a requested record does not exist (or has
// logically expired). It aliases gorm.ErrRecordNotFound for convenience and
// consistency across the service layer and handlers.
var ErrNotFound = gorm.ErrRecordNotFound

// GetSessionRecord loads the session envelope for tableID and deserializes
// the aggregate. An absent row returns ErrNotFound. A row past its expiry is
// hard-deleted and reported as ErrNotFound, so callers observe expiry as
// plain absence.
func GetSessionRecord(ctx context.Context, db *gorm.DB, tableID string, now time.Time) (*domain.TableSession, *domain.TableSessionRecord, error) {
	var rec domain.TableSessionRecord
	err := db.WithContext(ctx).
		Where("table_id = ?", tableID).
		First(&rec).Error
	if err != nil {
		return nil, nil, err
	}

	if rec.Expired(now) {
		// Unscoped: free the primary key so a fresh session can be created.
		db.WithContext(ctx).Unscoped().Delete(&domain.TableSessionRecord{}, "table_id = ?", tableID)
		db.WithContext(ctx).Unscoped().Delete(&domain.DeviceBinding{}, "table_id = ?", tableID)
		return nil, nil, ErrNotFound
	}

	var session domain.TableSession
	if err := json.Unmarshal([]byte(rec.SessionJSON), &session); err != nil {
		return nil, nil, err
	}
	return &session, &rec, nil
}

// PutSessionRecord upserts the full serialized session. On first write the
// lifetime window is set to [now, now+ttl]; later writes refresh only the
// payload, never the window (the TTL is a session lifetime, not an idle
// timeout).
func PutSessionRecord(ctx context.Context, db *gorm.DB, session *domain.TableSession, ttl time.Duration, now time.Time) error {
	raw, err := json.Marshal(session)
	if err != nil {
		return err
	}

	rec := &domain.TableSessionRecord{
		TableID:     session.TableNumber,
		SessionJSON: string(raw),
		CreatedAt:   session.CreatedAt,
		ExpiresAt:   session.CreatedAt.Add(ttl),
		UpdatedAt:   now,
	}
	return db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "table_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"session_json", "updated_at"}),
		}).
		Create(rec).Error
}

// DeleteSessionRecord removes the session envelope and every device binding
// attached to the table. Missing rows are not an error.
func DeleteSessionRecord(ctx context.Context, db *gorm.DB, tableID string) error {
	if err := db.WithContext(ctx).Unscoped().
		Delete(&domain.TableSessionRecord{}, "table_id = ?", tableID).Error; err != nil {
		return err
	}
	return db.WithContext(ctx).Unscoped().
		Delete(&domain.DeviceBinding{}, "table_id = ?", tableID).Error
}

// GetBinding returns the diner identity bound to deviceID at tableID, or
// ErrNotFound.
func GetBinding(ctx context.Context, db *gorm.DB, tableID, deviceID string) (*domain.DeviceBinding, error) {
	var b domain.DeviceBinding
	err := db.WithContext(ctx).
		Where("device_id = ? AND table_id = ?", deviceID, tableID).
		First(&b).Error
	if err != nil {
		return nil, err
	}
	return &b, nil
}

// PutBinding records (or refreshes) the device → diner identity binding.
func PutBinding(ctx context.Context, db *gorm.DB, tableID, deviceID, dinerID string, now time.Time) error {
	b := &domain.DeviceBinding{
		DeviceID:  deviceID,
		TableID:   tableID,
		DinerID:   dinerID,
		CreatedAt: now,
	}
	return db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "device_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"table_id", "diner_id"}),
		}).
		Create(b).Error
}

// DeleteBinding drops the device's binding to the table. The session itself
// is untouched: other diners remain. Missing rows are not an error.
func DeleteBinding(ctx context.Context, db *gorm.DB, tableID, deviceID string) error {
	err := db.WithContext(ctx).Unscoped().
		Delete(&domain.DeviceBinding{}, "device_id = ? AND table_id = ?", deviceID, tableID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil
	}
	return err
}
