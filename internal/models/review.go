package models

import "time"

// ReviewTargetType enumerates what a review can be about.
type ReviewTargetType string

const (
	ReviewTargetSpecialist   ReviewTargetType = "specialist"
	ReviewTargetOrganization ReviewTargetType = "organization"
	ReviewTargetClinic       ReviewTargetType = "clinic"
)

// Review is a rating left by one party of an order about another.
type Review struct {
	ID          uint             `gorm:"primaryKey" json:"id"`
	SenderID    uint             `gorm:"not null;index;uniqueIndex:idx_reviews_order_sender_target" json:"sender_id"`
	OrderID     uint             `gorm:"not null;index;uniqueIndex:idx_reviews_order_sender_target" json:"order_id"`
	TargetID    uint             `gorm:"not null;uniqueIndex:idx_reviews_order_sender_target;index:idx_reviews_target" json:"target_id"`
	TargetType  ReviewTargetType `gorm:"size:16;not null;uniqueIndex:idx_reviews_order_sender_target;index:idx_reviews_target" json:"target_type"`
	Text        string           `gorm:"type:text;not null" json:"text"`
	Rate        int              `gorm:"not null" json:"rate"`
	Response    *string          `gorm:"type:text" json:"response"`
	RespondedAt *time.Time       `json:"responded_at"`
	CreatedAt   time.Time        `json:"created_at"`
	UpdatedAt   time.Time        `json:"updated_at"`
}
