// Package storage holds the immutable in-memory entry store and the SQLite
// snapshot writer used for one-way exports.
package storage

import (
	"context"
	"time"

	"github.com/hyperjump/compendium/internal/models"
)

// SnapshotWriter persists a point-in-time copy of a registry's entries.
type SnapshotWriter interface {
	WriteSnapshot(ctx context.Context, module string, entries []models.Entry) (*SnapshotInfo, error)
	Close() error
}

// SnapshotInfo describes one written snapshot.
type SnapshotInfo struct {
	ID         string    `json:"id"`
	Module     string    `json:"module"`
	EntryCount int       `json:"entry_count"`
	CreatedAt  time.Time `json:"created_at"`
}
