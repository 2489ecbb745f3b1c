package session

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/specloom/specloom/internal/db"
)

// Store manages persistence of sessions, turns, and stage artifacts.
type Store struct {
	db *db.DB
}

// NewStore creates a new session store.
func NewStore(database *db.DB) *Store {
	return &Store{db: database}
}

// DB exposes the underlying database for packages that share it.
func (s *Store) DB() *db.DB { return s.db }

// Create inserts a new session in the interviewing state.
func (s *Store) Create(ctx context.Context, sess Session) (*Session, error) {
	if sess.ID == "" {
		sess.ID = uuid.New().String()
	}
	if sess.Mode == "" {
		sess.Mode = ModeSelf
	}
	sess.Status = StatusInterviewing
	now := time.Now().UTC()
	sess.CreatedAt = now
	sess.UpdatedAt = now

	var campaignID any
	if sess.CampaignID != "" {
		campaignID = sess.CampaignID
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO sessions (id, account_id, theme, status, mode, campaign_id, respondent_name, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		sess.ID, sess.AccountID, sess.Theme, sess.Status, sess.Mode, campaignID, sess.RespondentName, sess.CreatedAt, sess.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("creating session: %w", err)
	}
	return &sess, nil
}

// Get retrieves a session by ID. Returns nil if not found.
func (s *Store) Get(ctx context.Context, id string) (*Session, error) {
	var sess Session
	var campaignID sql.NullString
	err := s.db.QueryRowContext(ctx,
		`SELECT id, account_id, theme, status, mode, campaign_id, respondent_name, created_at, updated_at
		 FROM sessions WHERE id = ?`, id,
	).Scan(&sess.ID, &sess.AccountID, &sess.Theme, &sess.Status, &sess.Mode, &campaignID, &sess.RespondentName, &sess.CreatedAt, &sess.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting session: %w", err)
	}
	sess.CampaignID = campaignID.String
	return &sess, nil
}

// ListByAccount returns all sessions owned by the given account, newest first.
func (s *Store) ListByAccount(ctx context.Context, accountID string) ([]Session, error) {
	return s.list(ctx,
		`SELECT id, account_id, theme, status, mode, campaign_id, respondent_name, created_at, updated_at
		 FROM sessions WHERE account_id = ? ORDER BY created_at DESC`, accountID)
}

// ListByCampaign returns all respondent sessions of a campaign.
func (s *Store) ListByCampaign(ctx context.Context, campaignID string) ([]Session, error) {
	return s.list(ctx,
		`SELECT id, account_id, theme, status, mode, campaign_id, respondent_name, created_at, updated_at
		 FROM sessions WHERE campaign_id = ? AND mode = ? ORDER BY created_at ASC`, campaignID, ModeCampaign)
}

func (s *Store) list(ctx context.Context, query string, args ...any) ([]Session, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying sessions: %w", err)
	}
	defer rows.Close()

	var sessions []Session
	for rows.Next() {
		var sess Session
		var campaignID sql.NullString
		if err := rows.Scan(&sess.ID, &sess.AccountID, &sess.Theme, &sess.Status, &sess.Mode, &campaignID, &sess.RespondentName, &sess.CreatedAt, &sess.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scanning session: %w", err)
		}
		sess.CampaignID = campaignID.String
		sessions = append(sessions, sess)
	}
	return sessions, rows.Err()
}

// SetStatus updates a session's status unconditionally.
func (s *Store) SetStatus(ctx context.Context, id string, status Status) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE sessions SET status = ?, updated_at = ? WHERE id = ?`,
		status, time.Now().UTC(), id,
	)
	if err != nil {
		return fmt.Errorf("updating session status: %w", err)
	}
	return nil
}

// AppendTurn appends one message to a session's conversation. Ordering is
// by the persisted sequence, assigned on insert.
func (s *Store) AppendTurn(ctx context.Context, sessionID, role, content string) (*Turn, error) {
	now := time.Now().UTC()
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO turns (session_id, role, content, created_at) VALUES (?, ?, ?, ?)`,
		sessionID, role, content, now,
	)
	if err != nil {
		return nil, fmt.Errorf("appending turn: %w", err)
	}
	seq, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("reading turn sequence: %w", err)
	}

	s.db.ExecContext(ctx, `UPDATE sessions SET updated_at = ? WHERE id = ?`, now, sessionID)

	return &Turn{Seq: seq, SessionID: sessionID, Role: role, Content: content, CreatedAt: now}, nil
}

// Turns returns all turns for a session in creation order.
func (s *Store) Turns(ctx context.Context, sessionID string) ([]Turn, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT seq, session_id, role, content, created_at
		 FROM turns WHERE session_id = ? ORDER BY seq ASC`, sessionID,
	)
	if err != nil {
		return nil, fmt.Errorf("querying turns: %w", err)
	}
	defer rows.Close()

	var turns []Turn
	for rows.Next() {
		var t Turn
		if err := rows.Scan(&t.Seq, &t.SessionID, &t.Role, &t.Content, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning turn: %w", err)
		}
		turns = append(turns, t)
	}
	return turns, rows.Err()
}

// CountUserTurns returns the number of user turns in a session.
func (s *Store) CountUserTurns(ctx context.Context, sessionID string) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM turns WHERE session_id = ? AND role = 'user'`, sessionID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("counting user turns: %w", err)
	}
	return count, nil
}

// SaveArtifact upserts a stage artifact and advances the session status in
// one transaction. The upsert is a single conditional write on the
// (session, stage) key, so concurrent readers never observe a gap.
func (s *Store) SaveArtifact(ctx context.Context, a Artifact) error {
	now := time.Now().UTC()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO stage_artifacts (session_id, stage, payload, parse_fallback, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(session_id, stage) DO UPDATE SET
		     payload = excluded.payload,
		     parse_fallback = excluded.parse_fallback,
		     updated_at = excluded.updated_at`,
		a.SessionID, a.Stage, string(a.Payload), boolToInt(a.ParseFallback), now, now,
	)
	if err != nil {
		return fmt.Errorf("upserting artifact: %w", err)
	}

	var current Status
	if err := tx.QueryRowContext(ctx, `SELECT status FROM sessions WHERE id = ?`, a.SessionID).Scan(&current); err != nil {
		return fmt.Errorf("reading session status: %w", err)
	}
	if next := AdvanceStatus(current, a.Stage); next != current {
		if _, err := tx.ExecContext(ctx,
			`UPDATE sessions SET status = ?, updated_at = ? WHERE id = ?`, next, now, a.SessionID); err != nil {
			return fmt.Errorf("advancing session status: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing artifact: %w", err)
	}
	return nil
}

// GetArtifact retrieves the artifact for (session, stage). Returns nil if absent.
func (s *Store) GetArtifact(ctx context.Context, sessionID string, stage Stage) (*Artifact, error) {
	var a Artifact
	var payload string
	var fallback int
	err := s.db.QueryRowContext(ctx,
		`SELECT session_id, stage, payload, parse_fallback, created_at, updated_at
		 FROM stage_artifacts WHERE session_id = ? AND stage = ?`, sessionID, stage,
	).Scan(&a.SessionID, &a.Stage, &payload, &fallback, &a.CreatedAt, &a.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting artifact: %w", err)
	}
	a.Payload = []byte(payload)
	a.ParseFallback = fallback != 0
	return &a, nil
}

// HasArtifact reports whether an artifact exists for (session, stage).
func (s *Store) HasArtifact(ctx context.Context, sessionID string, stage Stage) (bool, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM stage_artifacts WHERE session_id = ? AND stage = ?`, sessionID, stage,
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("checking artifact: %w", err)
	}
	return count > 0, nil
}

// ArtifactCount returns how many artifact rows a session holds, used by
// tests to assert upsert semantics.
func (s *Store) ArtifactCount(ctx context.Context, sessionID string) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM stage_artifacts WHERE session_id = ?`, sessionID,
	).Scan(&count)
	return count, err
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
