package models

import (
	"time"

	"gorm.io/datatypes"
)

// DayHours describes the opening window of a clinic for one weekday.
type DayHours struct {
	Open       string  `json:"open"`
	Close      string  `json:"close"`
	BreakStart *string `json:"break_start,omitempty"`
	BreakEnd   *string `json:"break_end,omitempty"`
}

// WeeklyHours maps a lower-case weekday name to its opening window.
type WeeklyHours map[string]DayHours

// Clinic is a physical location owned by an organization.
type Clinic struct {
	ID             uint                            `gorm:"primaryKey" json:"id"`
	OrganizationID uint                            `gorm:"index;not null" json:"organization_id"`
	Name           string                          `gorm:"size:100;not null" json:"name"`
	Location       string                          `gorm:"size:100;index;not null" json:"location"`
	Address        string                          `gorm:"size:200;not null" json:"address"`
	IsActive       bool                            `gorm:"not null" json:"is_active"`
	WorkHours      datatypes.JSONType[WeeklyHours] `gorm:"type:json" json:"work_hours"`
	Is24x7         bool                            `gorm:"column:is_24_7;not null;default:false" json:"is_24_7"`
	CreatedAt      time.Time                       `json:"created_at"`
	UpdatedAt      time.Time                       `json:"updated_at"`
}

// Hours returns the decoded weekly schedule, never nil.
func (c Clinic) Hours() WeeklyHours {
	hours := c.WorkHours.Data()
	if hours == nil {
		return WeeklyHours{}
	}
	return hours
}
