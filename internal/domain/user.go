package domain

import (
	"time"

	"github.com/google/uuid"
)

// User is a therapist account. Passwords are bcrypt hashes and never serialized.
type User struct {
	ID             uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	Email          string    `gorm:"uniqueIndex;not null;column:email" json:"email"`
	Password       string    `gorm:"not null;column:password" json:"-"`
	FullName       string    `gorm:"not null;column:full_name" json:"full_name"`
	Username       string    `gorm:"column:username" json:"username"`
	Phone          string    `gorm:"column:phone" json:"phone"`
	Specialization string    `gorm:"not null;column:specialization" json:"specialization"`
	LicenseNumber  string    `gorm:"not null;column:license_number" json:"license_number"`
	Experience     string    `gorm:"column:experience" json:"experience"`
	Bio            string    `gorm:"column:bio;type:text" json:"bio"`
	ClinicAddress  string    `gorm:"column:clinic_address" json:"clinic_address"`
	ProfileImage   string    `gorm:"column:profile_image" json:"profile_image"`
	CreatedAt      time.Time `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt      time.Time `gorm:"not null;default:now()" json:"updated_at"`
}

func (User) TableName() string { return "user" }

type UserToken struct {
	ID           uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	UserID       uuid.UUID `gorm:"type:uuid;index;not null" json:"user_id"`
	User         *User     `gorm:"constraint:OnDelete:CASCADE;foreignKey:UserID;references:ID" json:"-"`
	AccessToken  string    `gorm:"uniqueIndex;not null;column:access_token" json:"access_token"`
	RefreshToken string    `gorm:"uniqueIndex;not null;column:refresh_token" json:"refresh_token"`
	ExpiresAt    time.Time `gorm:"column:expires_at" json:"expires_at"`
	CreatedAt    time.Time `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt    time.Time `gorm:"not null;default:now()" json:"updated_at"`
}

func (UserToken) TableName() string { return "user_token" }
