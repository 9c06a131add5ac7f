// Package storage persists the dashboard's state snapshot as a small set
// of key/value JSON documents. A missing key always means "no prior
// state".
package storage

import (
	"context"
	"errors"
)

var ErrNotFound = errors.New("key not found")

// Snapshot keys. Absence of any key implies default/empty initialization.
const (
	KeyAccount      = "userAccount"
	KeyPortfolio    = "portfolio"
	KeyTransactions = "transactions"
	KeyTutorial     = "tutorialComplete"
	KeyAchievements = "achievements"
)

type Store interface {
	// Get returns the stored value for key, or ErrNotFound.
	Get(ctx context.Context, key string) ([]byte, error)
	// Set writes the value for key, replacing any previous value.
	Set(ctx context.Context, key string, value []byte) error
}
