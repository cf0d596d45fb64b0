package store

import (
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/dukerupert/hearth/internal/model"
)

type UserStore struct {
	db *sql.DB
}

func NewUserStore(db *sql.DB) *UserStore {
	return &UserStore{db: db}
}

const userCols = `id, family_id, name, role, is_under_13, email, timezone, pin_hash IS NOT NULL, created_at, updated_at`

func scanUser(scanner interface{ Scan(...any) error }) (*model.User, error) {
	var u model.User
	var under13, hasPIN int

	err := scanner.Scan(&u.ID, &u.FamilyID, &u.Name, &u.Role, &under13,
		&u.Email, &u.Timezone, &hasPIN, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, err
	}

	u.IsUnder13 = under13 != 0
	u.HasPIN = hasPIN != 0
	return &u, nil
}

func (s *UserStore) Create(familyID, name string, role model.Role, isUnder13 bool, email, timezone string) (*model.User, error) {
	if !role.Valid() {
		return nil, fmt.Errorf("invalid role %q", role)
	}
	id := uuid.NewString()
	_, err := s.db.Exec(
		`INSERT INTO users (id, family_id, name, role, is_under_13, email, timezone) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		id, familyID, name, role, boolToInt(isUnder13), email, timezone,
	)
	if err != nil {
		return nil, fmt.Errorf("insert user: %w", err)
	}
	return s.GetByID(id)
}

func (s *UserStore) GetByID(id string) (*model.User, error) {
	row := s.db.QueryRow(`SELECT `+userCols+` FROM users WHERE id = ?`, id)
	u, err := scanUser(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return u, nil
}

func (s *UserStore) ListByFamily(familyID string) ([]model.User, error) {
	rows, err := s.db.Query(`SELECT `+userCols+` FROM users WHERE family_id = ? ORDER BY created_at ASC`, familyID)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	var users []model.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, *u)
	}
	return users, rows.Err()
}

// Update persists the profile fields a principal may edit.
func (s *UserStore) Update(u *model.User) (*model.User, error) {
	_, err := s.db.Exec(
		`UPDATE users SET name = ?, email = ?, timezone = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		u.Name, u.Email, u.Timezone, u.ID,
	)
	if err != nil {
		return nil, fmt.Errorf("update user: %w", err)
	}
	return s.GetByID(u.ID)
}

func (s *UserStore) SetPIN(id, pin string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(pin), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash pin: %w", err)
	}
	_, err = s.db.Exec(`UPDATE users SET pin_hash = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`, string(hash), id)
	if err != nil {
		return fmt.Errorf("set pin: %w", err)
	}
	return nil
}

// VerifyPIN checks the PIN against the stored hash. A user without a PIN
// never verifies.
func (s *UserStore) VerifyPIN(id, pin string) (bool, error) {
	var hash sql.NullString
	err := s.db.QueryRow(`SELECT pin_hash FROM users WHERE id = ?`, id).Scan(&hash)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("get pin hash: %w", err)
	}
	if !hash.Valid {
		return false, nil
	}
	return bcrypt.CompareHashAndPassword([]byte(hash.String), []byte(pin)) == nil, nil
}
