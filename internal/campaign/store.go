package campaign

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/specloom/specloom/internal/db"
	"github.com/specloom/specloom/internal/session"
)

// Store manages campaigns, their funnel counters, and the sessions a
// campaign creates through the session store.
type Store struct {
	db       *db.DB
	sessions *session.Store
}

func NewStore(database *db.DB, sessions *session.Store) *Store {
	return &Store{db: database, sessions: sessions}
}

// Create inserts a campaign together with its owner's own session for
// the same theme.
func (s *Store) Create(ctx context.Context, accountID, theme string) (*Campaign, error) {
	owner, err := s.sessions.Create(ctx, session.Session{
		AccountID: accountID,
		Theme:     theme,
		Mode:      session.ModeSelf,
	})
	if err != nil {
		return nil, fmt.Errorf("creating owner session: %w", err)
	}

	c := Campaign{
		ID:             uuid.New().String(),
		AccountID:      accountID,
		Theme:          theme,
		OwnerSessionID: owner.ID,
		CreatedAt:      time.Now().UTC(),
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO campaigns (id, account_id, theme, owner_session_id, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		c.ID, c.AccountID, c.Theme, c.OwnerSessionID, c.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("creating campaign: %w", err)
	}
	return &c, nil
}

// Get retrieves a campaign by ID. Returns nil if not found.
func (s *Store) Get(ctx context.Context, id string) (*Campaign, error) {
	var c Campaign
	err := s.db.QueryRowContext(ctx,
		`SELECT id, account_id, theme, owner_session_id, created_at FROM campaigns WHERE id = ?`, id,
	).Scan(&c.ID, &c.AccountID, &c.Theme, &c.OwnerSessionID, &c.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting campaign: %w", err)
	}
	return &c, nil
}

// Join creates a respondent session inside the campaign and counts it
// in the funnel.
func (s *Store) Join(ctx context.Context, c *Campaign, respondentName string) (*session.Session, error) {
	sess, err := s.sessions.Create(ctx, session.Session{
		Theme:          c.Theme,
		Mode:           session.ModeCampaign,
		CampaignID:     c.ID,
		RespondentName: respondentName,
	})
	if err != nil {
		return nil, fmt.Errorf("creating respondent session: %w", err)
	}
	if err := s.Track(ctx, c.ID, EventSessionsCreated); err != nil {
		return nil, err
	}
	return sess, nil
}

// Track increments one funnel counter.
func (s *Store) Track(ctx context.Context, campaignID, event string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO campaign_counters (campaign_id, event, count) VALUES (?, ?, 1)
		ON CONFLICT(campaign_id, event) DO UPDATE SET count = count + 1`,
		campaignID, event)
	if err != nil {
		return fmt.Errorf("tracking %s: %w", event, err)
	}
	return nil
}

// Counters returns every funnel counter for a campaign. Events never
// tracked are present with a zero count.
func (s *Store) Counters(ctx context.Context, campaignID string) (map[string]int64, error) {
	counters := map[string]int64{
		EventPageViews:           0,
		EventSessionsCreated:     0,
		EventInterviewsStarted:   0,
		EventRequirementsReached: 0,
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT event, count FROM campaign_counters WHERE campaign_id = ?`, campaignID)
	if err != nil {
		return nil, fmt.Errorf("querying counters: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var event string
		var count int64
		if err := rows.Scan(&event, &count); err != nil {
			return nil, fmt.Errorf("scanning counter: %w", err)
		}
		counters[event] = count
	}
	return counters, rows.Err()
}
