package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/uptrace/bun"
)

type entryRow struct {
	bun.BaseModel `bun:"table:history_entries,alias:he"`

	UserID    string    `bun:"user_id,pk"`
	Payload   []byte    `bun:"payload,type:jsonb,notnull"`
	UpdatedAt time.Time `bun:"updated_at,notnull"`
}

// postgresDriver persists entries as one jsonb row per user via bun.
type postgresDriver struct {
	db *bun.DB
}

var _ Driver = (*postgresDriver)(nil)

func newPostgresDriver(db *bun.DB) *postgresDriver {
	return &postgresDriver{db: db}
}

// EnsureSchema creates the history table if it does not exist yet. Called
// once at startup by the wiring code.
func EnsureSchema(ctx context.Context, db *bun.DB) error {
	_, err := db.NewCreateTable().
		Model((*entryRow)(nil)).
		IfNotExists().
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("create history table: %w", err)
	}
	return nil
}

func (d *postgresDriver) Load(ctx context.Context, userID string) (*Entry, error) {
	var row entryRow
	err := d.db.NewSelect().
		Model(&row).
		Where("user_id = ?", userID).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrEntryNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("postgres load: %w", err)
	}

	var entry Entry
	if err := json.Unmarshal(row.Payload, &entry); err != nil {
		return nil, fmt.Errorf("unmarshal history entry: %w", err)
	}
	return &entry, nil
}

func (d *postgresDriver) Save(ctx context.Context, entry *Entry) error {
	payload, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshal history entry: %w", err)
	}

	row := entryRow{
		UserID:    entry.UserID,
		Payload:   payload,
		UpdatedAt: time.Now().UTC(),
	}
	_, err = d.db.NewInsert().
		Model(&row).
		On("CONFLICT (user_id) DO UPDATE").
		Set("payload = EXCLUDED.payload").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("postgres save: %w", err)
	}
	return nil
}

func (d *postgresDriver) Delete(ctx context.Context, userID string) error {
	_, err := d.db.NewDelete().
		Model((*entryRow)(nil)).
		Where("user_id = ?", userID).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("postgres delete: %w", err)
	}
	return nil
}

func (d *postgresDriver) Close() error {
	return d.db.Close()
}
