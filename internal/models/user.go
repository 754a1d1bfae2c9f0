package models

import "time"

// User - локальная проекция каталога пользователей
type User struct {
	ID        uint64 `gorm:"primaryKey"`
	Nickname  string `gorm:"type:varchar(50);not null"`
	CreatedAt time.Time
}

func (User) TableName() string { return "users" }

type MembershipStatus string

const (
	MembershipActive  MembershipStatus = "ACTIVE"
	MembershipPending MembershipStatus = "PENDING"
	MembershipRevoked MembershipStatus = "REVOKED"
)

// BuildingMembership ведет администрирование зданий, чат только читает
type BuildingMembership struct {
	ID         uint64           `gorm:"primaryKey"`
	UserID     uint64           `gorm:"not null;uniqueIndex:ux_building_memberships_user_building,priority:1"`
	BuildingID uint64           `gorm:"not null;uniqueIndex:ux_building_memberships_user_building,priority:2"`
	Status     MembershipStatus `gorm:"type:varchar(16);not null"`
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

func (BuildingMembership) TableName() string { return "building_memberships" }

// UserIdentity - пользователь, определенный один раз при аутентификации
type UserIdentity struct {
	ID       uint64 `json:"id"`
	Nickname string `json:"nickname"`
}
