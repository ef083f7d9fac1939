package models

import "time"

type UserRole string

const (
	UserRoleUser  UserRole = "user"
	UserRoleAdmin UserRole = "admin"
)

// User carries the weak back-reference to its current active subscription.
// The subscription row is looked up by id; the pointer moves, rows stay.
type User struct {
	ID           string   `gorm:"column:id;type:uuid;primary_key" json:"id"`
	Email        string   `gorm:"column:email;type:varchar(255);not null;uniqueIndex" json:"email"`
	PasswordHash string   `gorm:"column:password_hash;type:varchar(255);not null" json:"-"`
	FullName     string   `gorm:"column:full_name;type:varchar(100);not null" json:"full_name"`
	Phone        string   `gorm:"column:phone;type:varchar(32)" json:"phone"`
	Role         UserRole `gorm:"column:role;type:varchar(16);not null;default:'user'" json:"role"`
	IsActive     bool     `gorm:"column:is_active;not null;default:true" json:"is_active"`

	// SubscriptionID points at the user's current UserSubscription, if any.
	SubscriptionID *string `gorm:"column:subscription_id;type:uuid" json:"subscription_id"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (User) TableName() string {
	return "users"
}

func (u *User) IsAdmin() bool {
	return u != nil && u.Role == UserRoleAdmin
}
