package dto

import (
	"strings"
	"time"

	"github.com/noah-isme/medlink-api/internal/models"
)

// DayHoursPayload is the opening window submitted for one weekday.
type DayHoursPayload struct {
	Open       string  `json:"open" validate:"required,hhmm"`
	Close      string  `json:"close" validate:"required,hhmm"`
	BreakStart *string `json:"break_start" validate:"omitempty,hhmm"`
	BreakEnd   *string `json:"break_end" validate:"omitempty,hhmm"`
}

// ClinicCreateRequest creates a clinic owned by the calling organization.
// OrganizationID is only honoured for admins creating on behalf of an organization.
type ClinicCreateRequest struct {
	OrganizationID *uint                      `json:"organization_id" validate:"omitempty,gt=0"`
	Name           string                     `json:"name" validate:"required,min=2,max=100"`
	Location       string                     `json:"location" validate:"required,min=2,max=100"`
	Address        string                     `json:"address" validate:"required,min=5,max=200"`
	IsActive       *bool                      `json:"is_active"`
	WorkHours      map[string]DayHoursPayload `json:"work_hours" validate:"omitempty,dive"`
	Is24x7         bool                       `json:"is_24_7"`
}

// Normalize trims the text fields before validation.
func (r *ClinicCreateRequest) Normalize() {
	r.Name = strings.TrimSpace(r.Name)
	r.Location = strings.TrimSpace(r.Location)
	r.Address = strings.TrimSpace(r.Address)
}

// ClinicUpdateRequest is a sparse clinic update. A non-nil WorkHours replaces the schedule.
type ClinicUpdateRequest struct {
	Name      *string                    `json:"name" validate:"omitempty,min=2,max=100"`
	Location  *string                    `json:"location" validate:"omitempty,min=2,max=100"`
	Address   *string                    `json:"address" validate:"omitempty,min=5,max=200"`
	IsActive  *bool                      `json:"is_active"`
	WorkHours map[string]DayHoursPayload `json:"work_hours" validate:"omitempty,dive"`
	Is24x7    *bool                      `json:"is_24_7"`
}

// Normalize trims the text fields before validation.
func (r *ClinicUpdateRequest) Normalize() {
	r.Name = trimOptional(r.Name)
	r.Location = trimOptional(r.Location)
	r.Address = trimOptional(r.Address)
}

// ClinicSearchRequest filters clinics by location substring.
type ClinicSearchRequest struct {
	Location string `query:"location" validate:"required,min=1,max=100"`
	Page     int    `query:"page"`
	PageSize int    `query:"page_size"`
}

// ClinicResponse serializes a clinic.
type ClinicResponse struct {
	ID             uint                       `json:"id"`
	OrganizationID uint                       `json:"organization_id"`
	Name           string                     `json:"name"`
	Location       string                     `json:"location"`
	Address        string                     `json:"address"`
	IsActive       bool                       `json:"is_active"`
	WorkHours      map[string]models.DayHours `json:"work_hours"`
	Is24x7         bool                       `json:"is_24_7"`
	CreatedAt      time.Time                  `json:"created_at"`
	UpdatedAt      time.Time                  `json:"updated_at"`
}

// ClinicListResponse wraps a page of clinics.
type ClinicListResponse struct {
	Items      []ClinicResponse `json:"items"`
	Pagination PaginationMeta   `json:"pagination"`
}

// NewClinicResponse converts a clinic model to DTO.
func NewClinicResponse(clinic models.Clinic) ClinicResponse {
	return ClinicResponse{
		ID:             clinic.ID,
		OrganizationID: clinic.OrganizationID,
		Name:           clinic.Name,
		Location:       clinic.Location,
		Address:        clinic.Address,
		IsActive:       clinic.IsActive,
		WorkHours:      clinic.Hours(),
		Is24x7:         clinic.Is24x7,
		CreatedAt:      clinic.CreatedAt,
		UpdatedAt:      clinic.UpdatedAt,
	}
}

// NewClinicResponseSlice converts a slice of clinics to DTOs.
func NewClinicResponseSlice(clinics []models.Clinic) []ClinicResponse {
	out := make([]ClinicResponse, 0, len(clinics))
	for _, clinic := range clinics {
		out = append(out, NewClinicResponse(clinic))
	}
	return out
}
