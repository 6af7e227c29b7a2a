package models

import "time"

// ResponseStatus enumerates the states of a bid on an order.
type ResponseStatus string

const (
	ResponseStatusProposed          ResponseStatus = "proposed"
	ResponseStatusTaken             ResponseStatus = "taken"
	ResponseStatusDenied            ResponseStatus = "denied"
	ResponseStatusCompleted         ResponseStatus = "completed"
	ResponseStatusPrematurelyClosed ResponseStatus = "prematurely_closed"
)

// Response is a bid submitted against an order by a non-creator.
// The composite unique index makes duplicate bids fail at the storage layer.
type Response struct {
	ID            uint           `gorm:"primaryKey" json:"id"`
	OrderID       uint           `gorm:"not null;uniqueIndex:idx_responses_order_responder;index" json:"order_id"`
	ResponderID   uint           `gorm:"not null;uniqueIndex:idx_responses_order_responder;index" json:"responder_id"`
	ResponderRole Role           `gorm:"size:16;not null" json:"responder_role"`
	Text          string         `gorm:"type:text;not null" json:"text"`
	Status        ResponseStatus `gorm:"size:24;index;not null;default:proposed" json:"status"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
}

