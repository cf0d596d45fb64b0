package store

import (
	"database/sql"
	"fmt"

	"github.com/dukerupert/hearth/internal/model"
)

type ConsentStore struct {
	db *sql.DB
}

func NewConsentStore(db *sql.DB) *ConsentStore {
	return &ConsentStore{db: db}
}

const consentCols = `id, parent_id, child_id, status, created_at, updated_at`

func scanConsent(scanner interface{ Scan(...any) error }) (*model.ParentalConsent, error) {
	var c model.ParentalConsent
	err := scanner.Scan(&c.ID, &c.ParentID, &c.ChildData.UserID, &c.Status, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// Create inserts a pending consent record for the pair. The key makes a
// second create for the same pair fail.
func (s *ConsentStore) Create(parentID, childID string) (*model.ParentalConsent, error) {
	id := model.ConsentKey(parentID, childID)
	_, err := s.db.Exec(
		`INSERT INTO parental_consents (id, parent_id, child_id, status) VALUES (?, ?, ?, ?)`,
		id, parentID, childID, model.ConsentPending,
	)
	if err != nil {
		return nil, fmt.Errorf("insert consent: %w", err)
	}
	return s.Get(parentID, childID)
}

func (s *ConsentStore) Get(parentID, childID string) (*model.ParentalConsent, error) {
	row := s.db.QueryRow(
		`SELECT `+consentCols+` FROM parental_consents WHERE id = ?`,
		model.ConsentKey(parentID, childID),
	)
	c, err := scanConsent(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get consent: %w", err)
	}
	return c, nil
}

// UpdateStatus resolves the record. The WHERE clause keeps terminal states
// terminal even under racing resolvers.
func (s *ConsentStore) UpdateStatus(parentID, childID string, status model.ConsentStatus) (*model.ParentalConsent, error) {
	res, err := s.db.Exec(
		`UPDATE parental_consents SET status = ?, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ? AND status = ?`,
		status, model.ConsentKey(parentID, childID), model.ConsentPending,
	)
	if err != nil {
		return nil, fmt.Errorf("update consent: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, fmt.Errorf("resolve consent %s: %w", model.ConsentKey(parentID, childID), ErrConflict)
	}
	return s.Get(parentID, childID)
}

// ListByChild returns every consent record naming the child.
func (s *ConsentStore) ListByChild(childID string) ([]model.ParentalConsent, error) {
	rows, err := s.db.Query(
		`SELECT `+consentCols+` FROM parental_consents WHERE child_id = ? ORDER BY created_at ASC`,
		childID,
	)
	if err != nil {
		return nil, fmt.Errorf("list consents: %w", err)
	}
	defer rows.Close()

	var consents []model.ParentalConsent
	for rows.Next() {
		c, err := scanConsent(rows)
		if err != nil {
			return nil, fmt.Errorf("scan consent: %w", err)
		}
		consents = append(consents, *c)
	}
	return consents, rows.Err()
}
