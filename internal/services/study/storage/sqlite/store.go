package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/sparkcards/sparkcards/internal/platform/storage/sqlitemigrate"
	"github.com/sparkcards/sparkcards/internal/services/study/storage"
	"github.com/sparkcards/sparkcards/internal/services/study/storage/sqlite/migrations"
	msqlite "modernc.org/sqlite"
	sqlite3lib "modernc.org/sqlite/lib"
)

// Store persists study state in SQLite.
type Store struct {
	sqlDB *sql.DB
}

var _ storage.Store = (*Store)(nil)

func toMillis(value time.Time) int64 {
	return value.UTC().UnixMilli()
}

func fromMillis(value int64) time.Time {
	return time.UnixMilli(value).UTC()
}

// Open opens a SQLite study store and applies embedded migrations.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	dsn := filepath.Clean(path) + "?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if err := sqlitemigrate.Apply(context.Background(), sqlDB, migrations.FS, ""); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return &Store{sqlDB: sqlDB}, nil
}

// Close closes the SQLite handle.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

func (s *Store) ready(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	return nil
}

// PutDeck inserts or updates one deck.
func (s *Store) PutDeck(ctx context.Context, deck storage.DeckRecord) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	deckID := strings.TrimSpace(deck.ID)
	title := strings.TrimSpace(deck.Title)
	if deckID == "" {
		return fmt.Errorf("deck id is required")
	}
	if title == "" {
		return fmt.Errorf("deck title is required")
	}
	createdAt, updatedAt := normalizeTimes(deck.CreatedAt, deck.UpdatedAt)

	_, err := s.sqlDB.ExecContext(ctx, `
INSERT INTO decks (id, title, description, created_at, updated_at)
VALUES (?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
    title = excluded.title,
    description = excluded.description,
    updated_at = excluded.updated_at
`,
		deckID,
		title,
		nullableString(deck.Description),
		toMillis(createdAt),
		toMillis(updatedAt),
	)
	if err != nil {
		return fmt.Errorf("put deck: %w", err)
	}
	return nil
}

// PutCard inserts or updates one card. The deck must exist.
func (s *Store) PutCard(ctx context.Context, card storage.CardRecord) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	cardID := strings.TrimSpace(card.ID)
	deckID := strings.TrimSpace(card.DeckID)
	if cardID == "" {
		return fmt.Errorf("card id is required")
	}
	if deckID == "" {
		return fmt.Errorf("deck id is required")
	}
	if strings.TrimSpace(card.FrontContent) == "" {
		return fmt.Errorf("card front content is required")
	}
	createdAt := card.CreatedAt.UTC()
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	_, err := s.sqlDB.ExecContext(ctx, `
INSERT INTO cards (id, deck_id, front_content, back_content, position, created_at)
VALUES (?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
    deck_id = excluded.deck_id,
    front_content = excluded.front_content,
    back_content = excluded.back_content,
    position = excluded.position
`,
		cardID,
		deckID,
		card.FrontContent,
		card.BackContent,
		card.Position,
		toMillis(createdAt),
	)
	if err != nil {
		if isForeignKeyViolation(err) {
			return fmt.Errorf("put card %s: deck %s: %w", cardID, deckID, storage.ErrNotFound)
		}
		return fmt.Errorf("put card: %w", err)
	}
	return nil
}

// ListDecks returns every deck with its card count and top card.
func (s *Store) ListDecks(ctx context.Context) ([]storage.DeckSummary, error) {
	if err := s.ready(ctx); err != nil {
		return nil, err
	}
	rows, err := s.sqlDB.QueryContext(ctx, `
SELECT d.id, d.title, d.description, d.created_at,
       (SELECT COUNT(*) FROM cards c WHERE c.deck_id = d.id) AS card_count,
       (SELECT c.front_content FROM cards c WHERE c.deck_id = d.id
         ORDER BY c.position ASC, c.created_at ASC, c.id ASC LIMIT 1) AS top_card_front
  FROM decks d
 ORDER BY d.created_at ASC, d.id ASC
`)
	if err != nil {
		return nil, fmt.Errorf("list decks: %w", err)
	}
	defer rows.Close()

	decks := make([]storage.DeckSummary, 0)
	for rows.Next() {
		var (
			deck        storage.DeckSummary
			description sql.NullString
			topCard     sql.NullString
			createdAt   int64
		)
		if err := rows.Scan(&deck.ID, &deck.Title, &description, &createdAt, &deck.CardCount, &topCard); err != nil {
			return nil, fmt.Errorf("scan deck: %w", err)
		}
		deck.Description = stringPtr(description)
		deck.TopCardFront = stringPtr(topCard)
		deck.CreatedAt = fromMillis(createdAt)
		decks = append(decks, deck)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate decks: %w", err)
	}
	return decks, nil
}

// DeleteCardsOfDeck removes every card belonging to deckID.
func (s *Store) DeleteCardsOfDeck(ctx context.Context, deckID string) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	deckID = strings.TrimSpace(deckID)
	if deckID == "" {
		return fmt.Errorf("deck id is required")
	}
	if _, err := s.sqlDB.ExecContext(ctx, `DELETE FROM cards WHERE deck_id = ?`, deckID); err != nil {
		return fmt.Errorf("delete cards of deck: %w", err)
	}
	return nil
}

// DeleteDeck removes the deck row. Cards must already be gone.
func (s *Store) DeleteDeck(ctx context.Context, deckID string) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	deckID = strings.TrimSpace(deckID)
	if deckID == "" {
		return fmt.Errorf("deck id is required")
	}
	if _, err := s.sqlDB.ExecContext(ctx, `DELETE FROM decks WHERE id = ?`, deckID); err != nil {
		if isForeignKeyViolation(err) {
			return fmt.Errorf("delete deck %s: %w", deckID, storage.ErrDeckHasCards)
		}
		return fmt.Errorf("delete deck: %w", err)
	}
	return nil
}

// PutRewardEvent appends one reward event.
func (s *Store) PutRewardEvent(ctx context.Context, event storage.RewardEvent) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	eventID := strings.TrimSpace(event.ID)
	deckID := strings.TrimSpace(event.DeckID)
	if eventID == "" {
		return fmt.Errorf("reward event id is required")
	}
	if deckID == "" {
		return fmt.Errorf("deck id is required")
	}
	if event.Sparks <= 0 {
		return fmt.Errorf("sparks must be greater than zero")
	}
	createdAt := event.CreatedAt.UTC()
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	_, err := s.sqlDB.ExecContext(ctx,
		`INSERT INTO reward_events (id, deck_id, sparks, created_at) VALUES (?, ?, ?, ?)`,
		eventID, deckID, event.Sparks, toMillis(createdAt),
	)
	if err != nil {
		return fmt.Errorf("put reward event: %w", err)
	}
	return nil
}

// ListRewardEvents returns the newest reward events matching query first.
func (s *Store) ListRewardEvents(ctx context.Context, query storage.RewardQuery) ([]storage.RewardEvent, error) {
	if err := s.ready(ctx); err != nil {
		return nil, err
	}
	if query.Limit <= 0 {
		return nil, fmt.Errorf("limit must be greater than zero")
	}
	sqlText, args := rewardEventsQuery(query)
	rows, err := s.sqlDB.QueryContext(ctx, sqlText, args...)
	if err != nil {
		return nil, fmt.Errorf("list reward events: %w", err)
	}
	defer rows.Close()

	events := make([]storage.RewardEvent, 0, query.Limit)
	for rows.Next() {
		var (
			event     storage.RewardEvent
			createdAt int64
		)
		if err := rows.Scan(&event.ID, &event.DeckID, &event.Sparks, &createdAt); err != nil {
			return nil, fmt.Errorf("scan reward event: %w", err)
		}
		event.CreatedAt = fromMillis(createdAt)
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate reward events: %w", err)
	}
	return events, nil
}

func rewardEventsQuery(query storage.RewardQuery) (string, []any) {
	var b strings.Builder
	b.WriteString("SELECT id, deck_id, sparks, created_at FROM reward_events")
	args := make([]any, 0, len(query.Params)+1)
	if condition := strings.TrimSpace(query.Condition); condition != "" {
		b.WriteString(" WHERE ")
		b.WriteString(condition)
		args = append(args, query.Params...)
	}
	b.WriteString(" ORDER BY created_at DESC, id DESC LIMIT ?")
	args = append(args, query.Limit)
	return b.String(), args
}

// SparksBalance returns the total sparks granted.
func (s *Store) SparksBalance(ctx context.Context) (int, error) {
	if err := s.ready(ctx); err != nil {
		return 0, err
	}
	var total int
	if err := s.sqlDB.QueryRowContext(ctx, `SELECT COALESCE(SUM(sparks), 0) FROM reward_events`).Scan(&total); err != nil {
		return 0, fmt.Errorf("sum sparks: %w", err)
	}
	return total, nil
}

func normalizeTimes(createdAt, updatedAt time.Time) (time.Time, time.Time) {
	createdAt = createdAt.UTC()
	updatedAt = updatedAt.UTC()
	switch {
	case createdAt.IsZero() && updatedAt.IsZero():
		createdAt = time.Now().UTC()
		updatedAt = createdAt
	case createdAt.IsZero():
		createdAt = updatedAt
	case updatedAt.IsZero():
		updatedAt = createdAt
	}
	return createdAt, updatedAt
}

func nullableString(value *string) sql.NullString {
	if value == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *value, Valid: true}
}

func stringPtr(value sql.NullString) *string {
	if !value.Valid {
		return nil
	}
	v := value.String
	return &v
}

func isForeignKeyViolation(err error) bool {
	if err == nil {
		return false
	}
	var sqliteErr *msqlite.Error
	if errors.As(err, &sqliteErr) && sqliteErr.Code() == sqlite3lib.SQLITE_CONSTRAINT_FOREIGNKEY {
		return true
	}
	return strings.Contains(strings.ToLower(err.Error()), "foreign key constraint failed")
}

// ListSelectedDecks returns the stored selection ordered by deck id.
func (s *Store) ListSelectedDecks(ctx context.Context) ([]string, error) {
	if err := s.ready(ctx); err != nil {
		return nil, err
	}
	rows, err := s.sqlDB.QueryContext(ctx, `SELECT deck_id FROM session_selections ORDER BY deck_id`)
	if err != nil {
		return nil, fmt.Errorf("list selected decks: %w", err)
	}
	defer rows.Close()

	ids := make([]string, 0)
	for rows.Next() {
		var deckID string
		if err := rows.Scan(&deckID); err != nil {
			return nil, fmt.Errorf("scan selected deck: %w", err)
		}
		ids = append(ids, deckID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate selected decks: %w", err)
	}
	return ids, nil
}

// ReplaceSelectedDecks swaps the stored selection in one transaction.
func (s *Store) ReplaceSelectedDecks(ctx context.Context, deckIDs []string) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin replace selection: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM session_selections`); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("clear selection: %w", err)
	}
	now := toMillis(time.Now())
	for _, deckID := range deckIDs {
		deckID = strings.TrimSpace(deckID)
		if deckID == "" {
			continue
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO session_selections (deck_id, selected_at) VALUES (?, ?)`,
			deckID, now,
		); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("insert selected deck: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit replace selection: %w", err)
	}
	return nil
}
