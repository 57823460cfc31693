package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/lib/pq"
	"github.com/sparkcards/sparkcards/internal/platform/storage/sqlitemigrate"
	"github.com/sparkcards/sparkcards/internal/services/study/storage"
	"github.com/sparkcards/sparkcards/internal/services/study/storage/postgres/migrations"
)

const foreignKeyViolation = pq.ErrorCode("23503")

// Store persists study state in PostgreSQL.
type Store struct {
	db *sql.DB
}

var _ storage.Store = (*Store)(nil)

// New wraps an open database handle. Migrations are not applied.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// Open connects to dsn and applies embedded migrations.
func Open(ctx context.Context, dsn string) (*Store, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, fmt.Errorf("postgres dsn is required")
	}
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres db: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres db: %w", err)
	}
	store := New(db)
	if err := store.Migrate(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return store, nil
}

// Migrate applies embedded migrations that are not yet recorded.
func (s *Store) Migrate(ctx context.Context) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	files, err := sqlitemigrate.Load(migrations.FS, "")
	if err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (
    name TEXT PRIMARY KEY,
    applied_at BIGINT NOT NULL
)`); err != nil {
		return fmt.Errorf("ensure migration table: %w", err)
	}
	for _, file := range files {
		var found int
		err := s.db.QueryRowContext(ctx, `SELECT 1 FROM schema_migrations WHERE name = $1`, file.Name).Scan(&found)
		if err == nil {
			continue
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("check migration %s: %w", file.Name, err)
		}
		if err := s.applyMigration(ctx, file); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) applyMigration(ctx context.Context, file sqlitemigrate.Migration) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin migration %s: %w", file.Name, err)
	}
	if _, err := tx.ExecContext(ctx, file.Up); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("exec migration %s: %w", file.Name, err)
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO schema_migrations (name, applied_at) VALUES ($1, $2) ON CONFLICT (name) DO NOTHING`,
		file.Name, time.Now().UTC().UnixMilli(),
	); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("record migration %s: %w", file.Name, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit migration %s: %w", file.Name, err)
	}
	return nil
}

// Close closes the database handle.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) ready(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.db == nil {
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
	now := time.Now().UTC()
	createdAt := deck.CreatedAt.UTC()
	if createdAt.IsZero() {
		createdAt = now
	}
	updatedAt := deck.UpdatedAt.UTC()
	if updatedAt.IsZero() {
		updatedAt = createdAt
	}

	_, err := s.db.ExecContext(ctx, `
INSERT INTO decks (id, title, description, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (id) DO UPDATE SET
    title = EXCLUDED.title,
    description = EXCLUDED.description,
    updated_at = EXCLUDED.updated_at
`, deckID, title, nullableString(deck.Description), createdAt.UnixMilli(), updatedAt.UnixMilli())
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

	_, err := s.db.ExecContext(ctx, `
INSERT INTO cards (id, deck_id, front_content, back_content, position, created_at)
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (id) DO UPDATE SET
    deck_id = EXCLUDED.deck_id,
    front_content = EXCLUDED.front_content,
    back_content = EXCLUDED.back_content,
    position = EXCLUDED.position
`, cardID, deckID, card.FrontContent, card.BackContent, card.Position, createdAt.UnixMilli())
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
	rows, err := s.db.QueryContext(ctx, `
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
		if description.Valid {
			deck.Description = &description.String
		}
		if topCard.Valid {
			deck.TopCardFront = &topCard.String
		}
		deck.CreatedAt = time.UnixMilli(createdAt).UTC()
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
	if _, err := s.db.ExecContext(ctx, `DELETE FROM cards WHERE deck_id = $1`, deckID); err != nil {
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
	if _, err := s.db.ExecContext(ctx, `DELETE FROM decks WHERE id = $1`, deckID); err != nil {
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
	if _, err := s.db.ExecContext(ctx,
		`INSERT INTO reward_events (id, deck_id, sparks, created_at) VALUES ($1, $2, $3, $4)`,
		eventID, deckID, event.Sparks, createdAt.UnixMilli(),
	); err != nil {
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
	rows, err := s.db.QueryContext(ctx, rebind(sqlText), args...)
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
		event.CreatedAt = time.UnixMilli(createdAt).UTC()
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
	if err := s.db.QueryRowContext(ctx, `SELECT COALESCE(SUM(sparks), 0) FROM reward_events`).Scan(&total); err != nil {
		return 0, fmt.Errorf("sum sparks: %w", err)
	}
	return total, nil
}

func nullableString(value *string) sql.NullString {
	if value == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *value, Valid: true}
}

func isForeignKeyViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == foreignKeyViolation
}

// ListSelectedDecks returns the stored selection ordered by deck id.
func (s *Store) ListSelectedDecks(ctx context.Context) ([]string, error) {
	if err := s.ready(ctx); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, `SELECT deck_id FROM session_selections ORDER BY deck_id`)
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
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin replace selection: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM session_selections`); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("clear selection: %w", err)
	}
	cleaned := make([]string, 0, len(deckIDs))
	for _, deckID := range deckIDs {
		if deckID = strings.TrimSpace(deckID); deckID != "" {
			cleaned = append(cleaned, deckID)
		}
	}
	if len(cleaned) > 0 {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO session_selections (deck_id, selected_at)
SELECT unnest($1::text[]), $2
ON CONFLICT (deck_id) DO NOTHING`,
			pq.Array(cleaned), time.Now().UTC().UnixMilli(),
		); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("insert selected decks: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit replace selection: %w", err)
	}
	return nil
}

// rebind rewrites ? placeholders into PostgreSQL $n form.
func rebind(query string) string {
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteString("$")
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
