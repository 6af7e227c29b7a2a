package models

import (
	"strings"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// OrderStatus enumerates the lifecycle states of an order.
type OrderStatus string

const (
	OrderStatusActive    OrderStatus = "active"
	OrderStatusInactive  OrderStatus = "inactive"
	OrderStatusCompleted OrderStatus = "completed"
	OrderStatusCancelled OrderStatus = "cancelled"
)

// Order is a posted request for a medical service. Specifications keeps the
// tags as submitted; SpecificationTags is a lowercased "|a|b|" copy used only
// for filtering.
type Order struct {
	ID                uint                        `gorm:"primaryKey" json:"id"`
	CreatorID         uint                        `gorm:"index;not null" json:"creator_id"`
	CreatorRole       Role                        `gorm:"size:16;not null" json:"creator_role"`
	ServiceType       string                      `gorm:"size:100;index;not null" json:"service_type"`
	Description       string                      `gorm:"type:text;not null" json:"description"`
	Specifications    datatypes.JSONSlice[string] `gorm:"type:json" json:"specifications"`
	SpecificationTags string                      `gorm:"type:text" json:"-"`
	PreferredDate     time.Time                   `gorm:"not null" json:"preferred_date"`
	ResponsesCount    int                         `gorm:"not null;default:0" json:"responses_count"`
	Status            OrderStatus                 `gorm:"size:16;index;not null;default:active" json:"status"`
	PatientID         *uint                       `gorm:"index" json:"patient_id"`
	SpecialistID      *uint                       `gorm:"index" json:"specialist_id"`
	ClinicID          *uint                       `gorm:"index" json:"clinic_id"`
	CreatedAt         time.Time                   `json:"created_at"`
	UpdatedAt         time.Time                   `json:"updated_at"`
}

// BeforeSave refreshes the search column from Specifications.
func (o *Order) BeforeSave(tx *gorm.DB) error {
	o.SpecificationTags = encodeTags(o.Specifications)
	return nil
}

// NormalizeTag is the form a tag takes inside SpecificationTags.
func NormalizeTag(tag string) string {
	return strings.ToLower(strings.TrimSpace(strings.ReplaceAll(tag, "|", " ")))
}

func encodeTags(tags []string) string {
	var b strings.Builder
	for _, tag := range tags {
		if normalized := NormalizeTag(tag); normalized != "" {
			b.WriteString("|")
			b.WriteString(normalized)
		}
	}
	if b.Len() == 0 {
		return ""
	}
	b.WriteString("|")
	return b.String()
}
