package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/Mickeymouse32/torii-frontend/internal/domain"
)

// draftID is the id of the only draft row; the form holds one listing at a
// time.
const draftID = 1

// Draft is the creation form as it was when the user last left it.
type Draft struct {
	Form      domain.FormInput
	Images    []DraftImage
	UpdatedAt time.Time
}

// DraftImage points at the preview of a staged image.
type DraftImage struct {
	Slot       int    `db:"slot"`
	Name       string `db:"name"`
	PreviewKey string `db:"preview_key"`
	MediaType  string `db:"media_type"`
}

type draftRow struct {
	Title         string    `db:"title"`
	Description   string    `db:"description"`
	Location      string    `db:"location"`
	Bedroom       string    `db:"bedroom"`
	LivingRoom    string    `db:"living_room"`
	Toilet        string    `db:"toilet"`
	Kitchen       string    `db:"kitchen"`
	Price         string    `db:"price"`
	PaymentPeriod string    `db:"payment_period"`
	UpdatedAt     time.Time `db:"updated_at"`
}

type DraftStore struct {
	db *sqlx.DB
}

func NewDraftStore(db *sql.DB) *DraftStore {
	return &DraftStore{db: sqlx.NewDb(db, "sqlite")}
}

// Save replaces the stored draft.
func (s *DraftStore) Save(ctx context.Context, d Draft) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO drafts (id, title, description, location, bedroom, living_room, toilet, kitchen, price, payment_period, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, datetime('now'))
		ON CONFLICT(id) DO UPDATE SET
			title = excluded.title,
			description = excluded.description,
			location = excluded.location,
			bedroom = excluded.bedroom,
			living_room = excluded.living_room,
			toilet = excluded.toilet,
			kitchen = excluded.kitchen,
			price = excluded.price,
			payment_period = excluded.payment_period,
			updated_at = excluded.updated_at
	`, draftID, d.Form.Title, d.Form.Description, d.Form.Location, d.Form.Bedroom, d.Form.LivingRoom,
		d.Form.Toilet, d.Form.Kitchen, d.Form.Price, d.Form.PaymentPeriod)
	if err != nil {
		return fmt.Errorf("failed to save draft: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM draft_images WHERE draft_id = ?`, draftID); err != nil {
		return fmt.Errorf("failed to clear draft images: %w", err)
	}

	for _, img := range d.Images {
		_, err := tx.NamedExecContext(ctx, `
			INSERT INTO draft_images (draft_id, slot, name, preview_key, media_type)
			VALUES (1, :slot, :name, :preview_key, :media_type)
		`, img)
		if err != nil {
			return fmt.Errorf("failed to save draft image %d: %w", img.Slot, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit draft: %w", err)
	}
	return nil
}

// Load returns the stored draft, or nil if there is none.
func (s *DraftStore) Load(ctx context.Context) (*Draft, error) {
	var row draftRow
	err := s.db.GetContext(ctx, &row, `
		SELECT title, description, location, bedroom, living_room, toilet, kitchen, price, payment_period, updated_at
		FROM drafts WHERE id = ?
	`, draftID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load draft: %w", err)
	}

	var images []DraftImage
	err = s.db.SelectContext(ctx, &images, `
		SELECT slot, name, preview_key, media_type FROM draft_images WHERE draft_id = ? ORDER BY slot ASC
	`, draftID)
	if err != nil {
		return nil, fmt.Errorf("failed to load draft images: %w", err)
	}

	return &Draft{
		Form: domain.FormInput{
			Title:         row.Title,
			Description:   row.Description,
			Location:      row.Location,
			Bedroom:       row.Bedroom,
			LivingRoom:    row.LivingRoom,
			Toilet:        row.Toilet,
			Kitchen:       row.Kitchen,
			Price:         row.Price,
			PaymentPeriod: row.PaymentPeriod,
		},
		Images:    images,
		UpdatedAt: row.UpdatedAt,
	}, nil
}

func (s *DraftStore) Delete(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM drafts WHERE id = ?`, draftID); err != nil {
		return fmt.Errorf("failed to delete draft: %w", err)
	}
	return nil
}
