package store

import (
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/dukerupert/hearth/internal/model"
)

type FamilyStore struct {
	db *sql.DB
}

func NewFamilyStore(db *sql.DB) *FamilyStore {
	return &FamilyStore{db: db}
}

const familyCols = `id, name, is_premium, pending_tasks, completed_tasks, total_points_awarded, version, created_at, updated_at`

func scanFamily(scanner interface{ Scan(...any) error }) (*model.Family, error) {
	var f model.Family
	var premium int

	err := scanner.Scan(&f.ID, &f.Name, &premium,
		&f.Counters.PendingTasks, &f.Counters.CompletedTasks, &f.Counters.TotalPointsAwarded,
		&f.Version, &f.CreatedAt, &f.UpdatedAt)
	if err != nil {
		return nil, err
	}

	f.IsPremium = premium != 0
	return &f, nil
}

func (s *FamilyStore) Create(name string) (*model.Family, error) {
	id := uuid.NewString()
	_, err := s.db.Exec(`INSERT INTO families (id, name) VALUES (?, ?)`, id, name)
	if err != nil {
		return nil, fmt.Errorf("insert family: %w", err)
	}
	return s.GetByID(id)
}

// GetByID loads the family document, including the membership sets derived
// from the users table.
func (s *FamilyStore) GetByID(id string) (*model.Family, error) {
	row := s.db.QueryRow(`SELECT `+familyCols+` FROM families WHERE id = ?`, id)
	f, err := scanFamily(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get family: %w", err)
	}

	rows, err := s.db.Query(`SELECT id, role FROM users WHERE family_id = ? ORDER BY created_at ASC`, id)
	if err != nil {
		return nil, fmt.Errorf("list family members: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var uid string
		var role model.Role
		if err := rows.Scan(&uid, &role); err != nil {
			return nil, fmt.Errorf("scan family member: %w", err)
		}
		f.MemberIDs = append(f.MemberIDs, uid)
		if role == model.RoleParent {
			f.ParentIDs = append(f.ParentIDs, uid)
		}
	}
	return f, rows.Err()
}

func (s *FamilyStore) UpdateName(id, name string) (*model.Family, error) {
	_, err := s.db.Exec(
		`UPDATE families SET name = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		name, id,
	)
	if err != nil {
		return nil, fmt.Errorf("update family: %w", err)
	}
	return s.GetByID(id)
}

// SetPremium records the subscription flag delivered by the billing
// collaborator. Affects member-capacity limits only.
func (s *FamilyStore) SetPremium(id string, premium bool) error {
	_, err := s.db.Exec(
		`UPDATE families SET is_premium = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		boolToInt(premium), id,
	)
	if err != nil {
		return fmt.Errorf("set premium: %w", err)
	}
	return nil
}
