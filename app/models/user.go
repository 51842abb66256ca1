package models

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/go-playground/validator/v10"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const (
	ROLE_STAFF = "staff"
	ROLE_ADMIN = "admin"

	STATUS_ACTIVE   = "active"
	STATUS_INACTIVE = "inactive"
	STATUS_DISABLED = "disabled"
)

// User is a staff member of an academy. Platform operators have a nil
// AcademyID and the admin role.
type User struct {
	ID               uint           `gorm:"primaryKey" json:"id"`
	AcademyID        *uint          `gorm:"index;default:null" json:"academy_id,omitempty"`
	Name             string         `gorm:"type:varchar(150)" json:"name" validate:"required,min=3,max=150"`
	Email            string         `gorm:"uniqueIndex;type:varchar(200)" json:"email" validate:"required,email,min=5,max=200"`
	Password         string         `gorm:"type:text" json:"-" validate:"required,min=6"`
	Role             string         `gorm:"type:varchar(50);default:'staff'" json:"role" validate:"oneof=staff admin"`
	Status           string         `gorm:"type:varchar(50);default:'active'" json:"status" validate:"oneof=active inactive disabled"`
	APIKeyHash       string         `gorm:"type:varchar(64);index;default:''" json:"-"`
	APIKeyPrefix     string         `gorm:"type:varchar(12);default:''" json:"-"`
	APIKeyCreatedAt  *time.Time     `gorm:"type:timestamp;default:null" json:"-"`
	APIKeyLastUsedAt *time.Time     `gorm:"type:timestamp;default:null" json:"-"`
	APIKeyRevokedAt  *time.Time     `gorm:"type:timestamp;default:null" json:"-"`
	LastLoginAt      *time.Time     `gorm:"type:timestamp;default:null" json:"last_login_at"`
	CreatedAt        time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt        time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt        gorm.DeletedAt `gorm:"index" json:"-"`
}

func (u *User) Validate() error {
	return validator.New().Struct(u)
}

// CreateUser builds a validated staff user with a hashed password.
func CreateUser(academyID *uint, name, email, password, role string) (*User, error) {
	pw, err := HashPassword(password)
	if err != nil {
		return nil, err
	}

	u := &User{
		AcademyID: academyID,
		Name:      name,
		Email:     email,
		Password:  pw,
		Role:      role,
		Status:    STATUS_ACTIVE,
	}
	if err := u.Validate(); err != nil {
		return nil, err
	}
	return u, nil
}

func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	return string(bytes), err
}

// CheckPasswordHash compares the given password with the stored hash.
func CheckPasswordHash(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// CheckPassword verifies if the provided password matches the user's stored password.
func (u *User) CheckPassword(password string) bool {
	return CheckPasswordHash(password, u.Password)
}

// SetPassword hashes and sets a new password for the user.
func (u *User) SetPassword(password string) error {
	hashed, err := HashPassword(password)
	if err != nil {
		return err
	}
	u.Password = hashed
	return nil
}

// IsActive reports whether the user status is active.
func (u *User) IsActive() bool {
	return u.Status == STATUS_ACTIVE
}

// HasActiveAPIKey reports whether the user carries a non-revoked API key.
func (u *User) HasActiveAPIKey() bool {
	return u.APIKeyHash != "" && u.APIKeyRevokedAt == nil
}

// IssueAPIKey generates a new API key, stores only its hash and prefix, and
// returns the raw key exactly once.
func (u *User) IssueAPIKey() (string, error) {
	raw, prefix, err := generateAPIKeyMaterial()
	if err != nil {
		return "", err
	}
	now := time.Now()
	u.APIKeyHash = HashAPIKey(raw)
	u.APIKeyPrefix = prefix
	u.APIKeyCreatedAt = &now
	u.APIKeyLastUsedAt = nil
	u.APIKeyRevokedAt = nil
	return raw, nil
}

// RevokeAPIKey clears the stored key material and records the revocation time.
func (u *User) RevokeAPIKey() {
	now := time.Now()
	u.APIKeyHash = ""
	u.APIKeyPrefix = ""
	u.APIKeyRevokedAt = &now
}

// HashAPIKey returns the hex SHA-256 of a raw API key.
func HashAPIKey(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}

func generateAPIKeyMaterial() (raw string, prefix string, err error) {
	b := make([]byte, 24)
	if _, err = rand.Read(b); err != nil {
		return "", "", err
	}
	raw = "fp_" + hex.EncodeToString(b)
	prefix = raw[:10]
	return raw, prefix, nil
}
