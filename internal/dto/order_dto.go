package dto

import (
	"time"

	"github.com/noah-isme/medlink-api/internal/models"
)

// OrderCreateRequest posts a new order. Specifications default to the service type.
type OrderCreateRequest struct {
	ServiceType    string    `json:"service_type" validate:"required,notblank,min=2,max=100"`
	Description    string    `json:"description" validate:"required,min=10,max=500"`
	Specifications []string  `json:"specifications" validate:"omitempty,dive,required,max=100"`
	PreferredDate  time.Time `json:"preferred_date" validate:"required"`
	PatientID      *uint     `json:"patient_id" validate:"omitempty,gt=0"`
	SpecialistID   *uint     `json:"specialist_id" validate:"omitempty,gt=0"`
	ClinicID       *uint     `json:"clinic_id" validate:"omitempty,gt=0"`
}

// OrderStatusRequest changes the status of an order.
type OrderStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=active inactive completed cancelled"`
}

// OrderListRequest filters order listings.
type OrderListRequest struct {
	Status        string `query:"status" validate:"omitempty,oneof=active inactive completed cancelled"`
	ServiceType   string `query:"service_type" validate:"omitempty,max=100"`
	Specification string `query:"specification" validate:"omitempty,max=100"`
	Page          int    `query:"page"`
	PageSize      int    `query:"page_size"`
}

// OrderResponse serializes an order.
type OrderResponse struct {
	ID             uint      `json:"id"`
	CreatorID      uint      `json:"creator_id"`
	CreatorRole    string    `json:"creator_role"`
	ServiceType    string    `json:"service_type"`
	Description    string    `json:"description"`
	Specifications []string  `json:"specifications"`
	PreferredDate  time.Time `json:"preferred_date"`
	ResponsesCount int       `json:"responses_count"`
	Status         string    `json:"status"`
	PatientID      *uint     `json:"patient_id"`
	SpecialistID   *uint     `json:"specialist_id"`
	ClinicID       *uint     `json:"clinic_id"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// OrderListResponse wraps a page of orders.
type OrderListResponse struct {
	Items      []OrderResponse `json:"items"`
	Pagination PaginationMeta  `json:"pagination"`
}

// NewOrderResponse converts an order model to DTO.
func NewOrderResponse(order models.Order) OrderResponse {
	return OrderResponse{
		ID:             order.ID,
		CreatorID:      order.CreatorID,
		CreatorRole:    string(order.CreatorRole),
		ServiceType:    order.ServiceType,
		Description:    order.Description,
		Specifications: nonNilStrings(order.Specifications),
		PreferredDate:  order.PreferredDate,
		ResponsesCount: order.ResponsesCount,
		Status:         string(order.Status),
		PatientID:      order.PatientID,
		SpecialistID:   order.SpecialistID,
		ClinicID:       order.ClinicID,
		CreatedAt:      order.CreatedAt,
		UpdatedAt:      order.UpdatedAt,
	}
}

// NewOrderResponseSlice converts orders to DTOs.
func NewOrderResponseSlice(orders []models.Order) []OrderResponse {
	out := make([]OrderResponse, 0, len(orders))
	for _, order := range orders {
		out = append(out, NewOrderResponse(order))
	}
	return out
}

// ResponseCreateRequest is a bid submitted against an order.
type ResponseCreateRequest struct {
	Text string `json:"text" validate:"required,min=10,max=1000"`
}

// ResponseListRequest filters bid listings.
type ResponseListRequest struct {
	Status   string `query:"status" validate:"omitempty,oneof=proposed taken denied completed prematurely_closed"`
	Page     int    `query:"page"`
	PageSize int    `query:"page_size"`
}

// BidResponse serializes a response (bid) to an order.
type BidResponse struct {
	ID            uint      `json:"id"`
	OrderID       uint      `json:"order_id"`
	ResponderID   uint      `json:"responder_id"`
	ResponderRole string    `json:"responder_role"`
	Text          string    `json:"text"`
	Status        string    `json:"status"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// BidListResponse wraps a page of bids.
type BidListResponse struct {
	Items      []BidResponse  `json:"items"`
	Pagination PaginationMeta `json:"pagination"`
}

// NewBidResponse converts a response model to DTO.
func NewBidResponse(response models.Response) BidResponse {
	return BidResponse{
		ID:            response.ID,
		OrderID:       response.OrderID,
		ResponderID:   response.ResponderID,
		ResponderRole: string(response.ResponderRole),
		Text:          response.Text,
		Status:        string(response.Status),
		CreatedAt:     response.CreatedAt,
		UpdatedAt:     response.UpdatedAt,
	}
}

// NewBidResponseSlice converts responses to DTOs.
func NewBidResponseSlice(responses []models.Response) []BidResponse {
	out := make([]BidResponse, 0, len(responses))
	for _, response := range responses {
		out = append(out, NewBidResponse(response))
	}
	return out
}

// AcceptResponse reports the outcome of accepting a bid.
type AcceptResponse struct {
	Response    BidResponse   `json:"response"`
	Order       OrderResponse `json:"order"`
	DeniedCount int64         `json:"denied_count"`
}
