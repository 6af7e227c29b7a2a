package models

import (
	"time"

	"gorm.io/datatypes"
)

// Role identifies which satellite profile a user owns.
type Role string

const (
	RolePatient      Role = "patient"
	RoleSpecialist   Role = "specialist"
	RoleOrganization Role = "organization"
	RoleAdmin        Role = "admin"
)

// Valid reports whether the role belongs to the closed role set.
func (r Role) Valid() bool {
	switch r {
	case RolePatient, RoleSpecialist, RoleOrganization, RoleAdmin:
		return true
	default:
		return false
	}
}

// AdminRole is the privilege level of an admin account.
type AdminRole string

const (
	AdminRoleHelper        AdminRole = "helper"
	AdminRoleModerator     AdminRole = "moderator"
	AdminRoleTechAdmin     AdminRole = "tech_admin"
	AdminRoleAdministrator AdminRole = "administrator"
)

// User is the shared base row for every account.
type User struct {
	ID           uint                 `gorm:"primaryKey" json:"id"`
	Nickname     string               `gorm:"size:20;uniqueIndex;not null" json:"nickname"`
	Name         string               `gorm:"size:30;not null" json:"name"`
	Role         Role                 `gorm:"size:16;index;not null" json:"role"`
	Country      string               `gorm:"size:64" json:"country"`
	Email        string               `gorm:"size:255;uniqueIndex;not null" json:"email"`
	PhoneNumber  string               `gorm:"size:20" json:"phone_number"`
	PhotoPath    *string              `gorm:"size:512" json:"photo_path"`
	PasswordHash string               `gorm:"size:255;not null" json:"-"`
	CreatedAt    time.Time            `json:"created_at"`
	UpdatedAt    time.Time            `json:"updated_at"`
	Patient      *PatientProfile      `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"patient,omitempty"`
	Specialist   *SpecialistProfile   `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"specialist,omitempty"`
	Organization *OrganizationProfile `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"organization,omitempty"`
	Admin        *AdminProfile        `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"admin,omitempty"`
	Blocked      *BlockedUser         `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"blocked,omitempty"`
}

// IsBlocked reports whether a block marker is attached to the user.
func (u User) IsBlocked() bool {
	return u.Blocked != nil
}

// PatientProfile holds patient-specific attributes.
type PatientProfile struct {
	UserID    uint      `gorm:"primaryKey;autoIncrement:false" json:"user_id"`
	City      *string   `gorm:"size:100" json:"city"`
	UpdatedAt time.Time `json:"updated_at"`
}

// SpecialistProfile holds specialist-specific attributes.
type SpecialistProfile struct {
	UserID         uint                        `gorm:"primaryKey;autoIncrement:false" json:"user_id"`
	Specifications datatypes.JSONSlice[string] `gorm:"type:json" json:"specifications"`
	Qualification  *string                     `gorm:"size:100" json:"qualification"`
	Experience     int                         `gorm:"not null;default:0" json:"experience"`
	UpdatedAt      time.Time                   `json:"updated_at"`
}

// OrganizationProfile holds organization-specific attributes. Owned clinics live in the clinics table.
type OrganizationProfile struct {
	UserID    uint                        `gorm:"primaryKey;autoIncrement:false" json:"user_id"`
	Locations datatypes.JSONSlice[string] `gorm:"type:json" json:"locations"`
	MemberIDs datatypes.JSONSlice[uint]   `gorm:"type:json" json:"member_ids"`
	UpdatedAt time.Time                   `json:"updated_at"`
}

// AdminProfile holds admin privilege data.
type AdminProfile struct {
	UserID       uint      `gorm:"primaryKey;autoIncrement:false" json:"user_id"`
	AdminRole    AdminRole `gorm:"size:32;not null" json:"admin_role"`
	IsSuperadmin bool      `gorm:"not null;default:false" json:"is_superadmin"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// BlockedUser marks an account as blocked. Presence of the row is the flag.
type BlockedUser struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"uniqueIndex;not null" json:"user_id"`
	Reason    string    `gorm:"size:500" json:"reason"`
	BlockedAt time.Time `gorm:"not null" json:"blocked_at"`
}
