package dto

import (
	"time"

	"github.com/noah-isme/medlink-api/internal/models"
)

// ReviewCreateRequest rates a party of a finished order.
type ReviewCreateRequest struct {
	OrderID    uint   `json:"order_id" validate:"required,gt=0"`
	TargetID   uint   `json:"target_id" validate:"required,gt=0"`
	TargetType string `json:"target_type" validate:"required,oneof=specialist organization clinic"`
	Text       string `json:"text" validate:"required,min=10,max=2000"`
	Rate       int    `json:"rate" validate:"required,min=1,max=10"`
}

// ReviewUpdateRequest edits the author's own review.
type ReviewUpdateRequest struct {
	Text *string `json:"text" validate:"omitempty,min=10,max=2000"`
	Rate *int    `json:"rate" validate:"omitempty,min=1,max=10"`
}

// ReviewReplyRequest is the target's answer to a review.
type ReviewReplyRequest struct {
	Text string `json:"text" validate:"required,min=5,max=2000"`
}

// ReviewTargetRequest filters reviews about one target.
type ReviewTargetRequest struct {
	MinRating int `query:"min_rating" validate:"omitempty,min=1,max=10"`
	MaxRating int `query:"max_rating" validate:"omitempty,min=1,max=10"`
	Page      int `query:"page"`
	PageSize  int `query:"page_size"`
}

// ReviewResponse serializes a review.
type ReviewResponse struct {
	ID          uint       `json:"id"`
	SenderID    uint       `json:"sender_id"`
	OrderID     uint       `json:"order_id"`
	TargetID    uint       `json:"target_id"`
	TargetType  string     `json:"target_type"`
	Text        string     `json:"text"`
	Rate        int        `json:"rate"`
	Response    *string    `json:"response"`
	RespondedAt *time.Time `json:"responded_at"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// ReviewListResponse wraps a page of reviews.
type ReviewListResponse struct {
	Items      []ReviewResponse `json:"items"`
	Pagination PaginationMeta   `json:"pagination"`
}

// RatingResponse is the aggregate rating of a target.
type RatingResponse struct {
	TargetID   uint    `json:"target_id"`
	TargetType string  `json:"target_type"`
	Average    float64 `json:"average"`
	Count      int64   `json:"count"`
}

// NewReviewResponse converts a review model to DTO.
func NewReviewResponse(review models.Review) ReviewResponse {
	return ReviewResponse{
		ID:          review.ID,
		SenderID:    review.SenderID,
		OrderID:     review.OrderID,
		TargetID:    review.TargetID,
		TargetType:  string(review.TargetType),
		Text:        review.Text,
		Rate:        review.Rate,
		Response:    review.Response,
		RespondedAt: review.RespondedAt,
		CreatedAt:   review.CreatedAt,
		UpdatedAt:   review.UpdatedAt,
	}
}

// NewReviewResponseSlice converts reviews to DTOs.
func NewReviewResponseSlice(reviews []models.Review) []ReviewResponse {
	out := make([]ReviewResponse, 0, len(reviews))
	for _, review := range reviews {
		out = append(out, NewReviewResponse(review))
	}
	return out
}
