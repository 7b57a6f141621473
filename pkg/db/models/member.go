package models

import (
	"time"

	"github.com/google/uuid"
)

// Member mirrors the externally owned member profile. Registration, auth and
// placement live outside the engine; this row carries the linkage fields the
// engine reads plus the flags it writes back.
type Member struct {
	ID            uuid.UUID  `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	MemberCode    string     `gorm:"column:member_code;not null;uniqueIndex"`
	FullName      string     `gorm:"column:full_name;not null"`
	SponsorCode   *string    `gorm:"column:sponsor_code;index"`
	PlacementCode *string    `gorm:"column:placement_code;index"`
	IsAdmin       bool       `gorm:"column:is_admin;not null;default:false"`
	ReferEligible bool       `gorm:"column:refer_eligible;not null;default:false"`
	EligibleAt    *time.Time `gorm:"column:eligible_at"`
	CreatedAt     time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}
