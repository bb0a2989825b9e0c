package models

import (
	"time"

	"github.com/golang-jwt/jwt/v4"
)

// Login platforms
const (
	PlatformGoogle   = "google"
	PlatformKakao    = "kakao"
	PlatformNaver    = "naver"
	PlatformFirebase = "firebase"
)

type User struct {
	ID               uint      `json:"id" gorm:"primaryKey"`
	SnsID            string    `json:"-" gorm:"size:255;uniqueIndex:idx_users_platform_sns"`
	LoginPlatform    string    `json:"login_platform" gorm:"size:20;uniqueIndex:idx_users_platform_sns"`
	Name             string    `json:"name" gorm:"size:100"`
	Email            string    `json:"email" gorm:"size:255;index"`
	Phone            string    `json:"phone" gorm:"size:30"`
	ProfileImage     string    `json:"profile_image"`
	Introduction     string    `json:"introduction"`
	Region           string    `json:"region" gorm:"size:100"`
	IsActive         bool      `json:"is_active" gorm:"default:true"`
	InterestedSports []Sport   `json:"interested_sports,omitempty" gorm:"many2many:user_interested_sports"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// UserCompact is the public profile embedded in other resources.
type UserCompact struct {
	UserID       uint   `json:"user_id"`
	Name         string `json:"name"`
	ProfileImage string `json:"profile_image"`
}

func (u *User) ToCompact() UserCompact {
	return UserCompact{UserID: u.ID, Name: u.Name, ProfileImage: u.ProfileImage}
}

// UserToken is a refresh token issued to a user.
type UserToken struct {
	ID           uint      `json:"id" gorm:"primaryKey"`
	UserID       uint      `json:"user_id" gorm:"index"`
	RefreshToken string    `json:"-" gorm:"size:255;uniqueIndex"`
	ExpiresAt    time.Time `json:"expires_at"`
	IsActive     bool      `json:"is_active" gorm:"default:true"`
	CreatedAt    time.Time `json:"created_at"`
}

type Sport struct {
	ID    uint   `json:"id" gorm:"primaryKey"`
	Name  string `json:"name" gorm:"size:100;uniqueIndex"`
	Image string `json:"image"`
}

type Certificate struct {
	ID      uint   `json:"id" gorm:"primaryKey"`
	SportID uint   `json:"sport_id" gorm:"index"`
	Name    string `json:"name" gorm:"size:100"`
}

type CertificateLevel struct {
	ID            uint   `json:"id" gorm:"primaryKey"`
	CertificateID uint   `json:"certificate_id" gorm:"index"`
	Level         string `json:"level" gorm:"size:50"`
}

// UserCertificate records a certificate level held by a user.
type UserCertificate struct {
	ID                 uint `json:"id" gorm:"primaryKey"`
	UserID             uint `json:"user_id" gorm:"uniqueIndex:idx_user_cert_level"`
	CertificateLevelID uint `json:"certificate_level_id" gorm:"uniqueIndex:idx_user_cert_level"`
}

// AdminUser signs in to the /admin pages.
type AdminUser struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	Username  string    `json:"username" gorm:"size:100;uniqueIndex"`
	Password  string    `json:"-"`
	CreatedAt time.Time `json:"created_at"`
}

type UpdateUserRequest struct {
	Name                *string `json:"name,omitempty" validate:"omitempty,min=1,max=100"`
	Email               *string `json:"email,omitempty" validate:"omitempty,email"`
	Phone               *string `json:"phone,omitempty" validate:"omitempty,max=30"`
	Introduction        *string `json:"introduction,omitempty" validate:"omitempty,max=1000"`
	Region              *string `json:"region,omitempty" validate:"omitempty,max=100"`
	InterestedSportIDs  []uint  `json:"interested_sports_ids,omitempty"`
	CertificateLevelIDs []uint  `json:"certificate_level_ids,omitempty"`
}

// JwtCustomClaims are custom claims extending standard jwt.RegisteredClaims
type JwtCustomClaims struct {
	UserID uint `json:"user_id"`
	jwt.RegisteredClaims
}
