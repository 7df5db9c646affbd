package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrEventNotFound is returned by lookups for an id that was never issued.
var ErrEventNotFound = errors.New("event not found")

const defaultTimezone = "UTC+8"

// AgendaItem is one line of an event agenda.
type AgendaItem struct {
	Time string `json:"time"`
	Item string `json:"item"`
}

// Event is a persisted gathering. Content fields are immutable after
// creation; only the participant arrays change.
type Event struct {
	ID               string
	CreatorID        int64
	CreatorName      string
	Title            string
	Type             string
	Description      string
	Datetime         string
	Duration         string
	Agenda           []AgendaItem
	Participants     []int64
	ParticipantNames []string
	Status           string
	CreatedAt        time.Time
}

// Preferences is a user's event-personalization record.
type Preferences struct {
	Interests      []string
	Timezone       string
	PreferredTimes []string
}

// MembershipOutcome classifies the result of a join/leave attempt.
type MembershipOutcome int

const (
	MembershipNotFound MembershipOutcome = iota
	MembershipAlreadyMember
	MembershipUpdated
)

// Store persists events, preferences and counters in Postgres.
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// NextSequence atomically increments and returns the named counter. The
// counter is created at 1 on first use; concurrent callers always observe
// distinct values.
func (s *Store) NextSequence(ctx context.Context, name string) (int64, error) {
	var seq int64
	err := s.pool.QueryRow(ctx,
		`INSERT INTO counters (name, seq) VALUES ($1, 1)
		 ON CONFLICT (name) DO UPDATE SET seq = counters.seq + 1
		 RETURNING seq`, name,
	).Scan(&seq)
	if err != nil {
		return 0, fmt.Errorf("next sequence %q: %w", name, err)
	}
	return seq, nil
}

// formatEventID renders a sequence number as the canonical 4-digit id.
func formatEventID(seq int64) string {
	return fmt.Sprintf("%04d", seq)
}

// CreateEvent inserts a new event from a validated proposal and returns its
// id. The creator is the first participant; creatorName may be empty, in
// which case the name list starts empty.
func (s *Store) CreateEvent(ctx context.Context, creatorID int64, creatorName string, p *EventProposal) (string, error) {
	seq, err := s.NextSequence(ctx, "event_id")
	if err != nil {
		return "", err
	}
	id := formatEventID(seq)

	agenda, err := json.Marshal(p.Agenda)
	if err != nil {
		return "", fmt.Errorf("marshal agenda: %w", err)
	}
	names := []string{}
	if creatorName != "" {
		names = []string{creatorName}
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO events
		 (id, creator_id, creator_name, title, type, description, datetime, duration,
		  agenda, participants, participant_names, status, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, 'pending', now())`,
		id, creatorID, creatorName, p.Title, p.Type, p.Description, p.Datetime, p.Duration,
		agenda, []int64{creatorID}, names,
	)
	if err != nil {
		return "", fmt.Errorf("insert event %s: %w", id, err)
	}
	return id, nil
}

// GetEvent fetches one event by id, or ErrEventNotFound.
func (s *Store) GetEvent(ctx context.Context, id string) (*Event, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, creator_id, creator_name, title, type, description, datetime,
		        duration, agenda, participants, participant_names, status, created_at
		 FROM events WHERE id = $1`, id)
	ev, err := scanEvent(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrEventNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get event %s: %w", id, err)
	}
	return ev, nil
}

// GetEventsForUser returns every event the user created or joined, oldest id
// first. No matches is an empty slice, not an error.
func (s *Store) GetEventsForUser(ctx context.Context, userID int64) ([]Event, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, creator_id, creator_name, title, type, description, datetime,
		        duration, agenda, participants, participant_names, status, created_at
		 FROM events
		 WHERE creator_id = $1 OR $1 = ANY(participants)
		 ORDER BY id`, userID)
	if err != nil {
		return nil, fmt.Errorf("events for user %d: %w", userID, err)
	}
	defer rows.Close()

	events := []Event{}
	for rows.Next() {
		ev, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("events for user %d: %w", userID, err)
		}
		events = append(events, *ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("events for user %d: %w", userID, err)
	}
	return events, nil
}

// UpdateParticipants joins or leaves an event. Membership is deduplicated by
// display name, not user id: a join whose name is already present reports
// MembershipAlreadyMember even for a different user. The write itself is a
// single conditional update, so concurrent identical joins cannot both land.
// The int result is the number of rows modified (0 or 1) for
// MembershipUpdated.
func (s *Store) UpdateParticipants(ctx context.Context, eventID string, userID int64, name string, join bool) (MembershipOutcome, int64, error) {
	ev, err := s.GetEvent(ctx, eventID)
	if errors.Is(err, ErrEventNotFound) {
		return MembershipNotFound, 0, nil
	}
	if err != nil {
		return MembershipNotFound, 0, err
	}
	if join && slices.Contains(ev.ParticipantNames, name) {
		return MembershipAlreadyMember, 0, nil
	}

	var query string
	if join {
		query = `UPDATE events
		         SET participants = array_append(participants, $2),
		             participant_names = array_append(participant_names, $3)
		         WHERE id = $1 AND NOT ($3 = ANY(participant_names))`
	} else {
		query = `UPDATE events
		         SET participants = array_remove(participants, $2),
		             participant_names = array_remove(participant_names, $3)
		         WHERE id = $1 AND ($2 = ANY(participants) OR $3 = ANY(participant_names))`
	}
	tag, err := s.pool.Exec(ctx, query, eventID, userID, name)
	if err != nil {
		return MembershipNotFound, 0, fmt.Errorf("update participants %s: %w", eventID, err)
	}
	return MembershipUpdated, tag.RowsAffected(), nil
}

// SavePreferences upserts the user's record, replacing all three fields.
// Fields left zero fall back to their defaults (empty sets, UTC+8), so a
// save that sets only the timezone clears interests and preferred times.
func (s *Store) SavePreferences(ctx context.Context, userID int64, prefs Preferences) error {
	if prefs.Interests == nil {
		prefs.Interests = []string{}
	}
	if prefs.PreferredTimes == nil {
		prefs.PreferredTimes = []string{}
	}
	if prefs.Timezone == "" {
		prefs.Timezone = defaultTimezone
	}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO user_preferences (user_id, interests, timezone, preferred_times, updated_at)
		 VALUES ($1, $2, $3, $4, now())
		 ON CONFLICT (user_id) DO UPDATE
		 SET interests = $2, timezone = $3, preferred_times = $4, updated_at = now()`,
		userID, prefs.Interests, prefs.Timezone, prefs.PreferredTimes,
	)
	if err != nil {
		return fmt.Errorf("save preferences for %d: %w", userID, err)
	}
	return nil
}

// GetPreferences returns the user's record, or nil when none was ever saved.
func (s *Store) GetPreferences(ctx context.Context, userID int64) (*Preferences, error) {
	var p Preferences
	err := s.pool.QueryRow(ctx,
		`SELECT interests, timezone, preferred_times
		 FROM user_preferences WHERE user_id = $1`, userID,
	).Scan(&p.Interests, &p.Timezone, &p.PreferredTimes)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get preferences for %d: %w", userID, err)
	}
	return &p, nil
}

func scanEvent(row pgx.Row) (*Event, error) {
	var ev Event
	var agenda []byte
	err := row.Scan(&ev.ID, &ev.CreatorID, &ev.CreatorName, &ev.Title, &ev.Type,
		&ev.Description, &ev.Datetime, &ev.Duration, &agenda,
		&ev.Participants, &ev.ParticipantNames, &ev.Status, &ev.CreatedAt)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(agenda, &ev.Agenda); err != nil {
		return nil, fmt.Errorf("decode agenda: %w", err)
	}
	return &ev, nil
}
