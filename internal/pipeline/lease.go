package pipeline

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/specloom/specloom/internal/db"
	"github.com/specloom/specloom/internal/httpx"
)

// DefaultLeaseTTL bounds how long a crashed run can block a session
// before the next pipeline request may take over.
const DefaultLeaseTTL = 10 * time.Minute

// LeaseStore hands out at most one live pipeline lease per session.
// Leases are persisted so a restarted process cannot double-run a
// session that another instance is still working on.
type LeaseStore struct {
	db  *db.DB
	ttl time.Duration
}

func NewLeaseStore(database *db.DB) *LeaseStore {
	return &LeaseStore{db: database, ttl: DefaultLeaseTTL}
}

// Acquire takes the lease for a session, replacing any expired one.
// It fails with a precondition error while a live lease is held.
func (l *LeaseStore) Acquire(ctx context.Context, sessionID string) (token string, err error) {
	token = uuid.New().String()
	expires := time.Now().UTC().Add(l.ttl)

	res, err := l.db.ExecContext(ctx, `
		INSERT INTO pipeline_leases (session_id, token, expires_at) VALUES (?, ?, ?)
		ON CONFLICT(session_id) DO UPDATE SET token = excluded.token, expires_at = excluded.expires_at
		WHERE pipeline_leases.expires_at <= ?`,
		sessionID, token, expires, time.Now().UTC())
	if err != nil {
		return "", err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return "", err
	}
	if n == 0 {
		return "", httpx.Preconditionf("a pipeline run is already in progress for this session")
	}
	return token, nil
}

// Release frees the lease if the caller still holds it. A lease taken
// over after expiry belongs to the new holder and is left alone.
func (l *LeaseStore) Release(ctx context.Context, sessionID, token string) error {
	_, err := l.db.ExecContext(ctx,
		`DELETE FROM pipeline_leases WHERE session_id = ? AND token = ?`,
		sessionID, token)
	return err
}
