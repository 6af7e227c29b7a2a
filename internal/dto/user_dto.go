package dto

import (
	"strings"
	"time"

	"github.com/noah-isme/medlink-api/internal/models"
)

// RegisterRequest is the registration payload. Role-specific fields are
// checked against the role policy after the struct-level validation.
type RegisterRequest struct {
	Role           string   `json:"role" validate:"required,oneof=patient specialist organization admin"`
	Nickname       string   `json:"nickname" validate:"required,min=4,max=20,nickname"`
	Name           string   `json:"name" validate:"required,min=2,max=30"`
	Country        string   `json:"country" validate:"omitempty,max=64"`
	Email          string   `json:"email" validate:"required,email,max=255"`
	PhoneNumber    string   `json:"phone_number" validate:"required,min=5,max=20"`
	Password       string   `json:"password" validate:"required,min=8,max=30"`
	PhotoPath      *string  `json:"photo_path" validate:"omitempty,max=512"`
	City           *string  `json:"city" validate:"omitempty,notblank,max=100"`
	Specifications []string `json:"specifications" validate:"omitempty,dive,required,max=100"`
	Qualification  *string  `json:"qualification" validate:"omitempty,notblank,max=100"`
	Experience     int      `json:"experience" validate:"min=0,max=80"`
	Locations      []string `json:"locations" validate:"omitempty,dive,required,max=200"`
	AdminRole      string   `json:"admin_role" validate:"omitempty,oneof=helper moderator tech_admin administrator"`
	IsSuperadmin   bool     `json:"is_superadmin"`
}

// Normalize trims the free-text fields so length rules apply to the stored value.
func (r *RegisterRequest) Normalize() {
	r.Nickname = strings.TrimSpace(r.Nickname)
	r.Name = strings.TrimSpace(r.Name)
	r.Country = strings.TrimSpace(r.Country)
	r.Email = strings.TrimSpace(r.Email)
	r.PhoneNumber = strings.TrimSpace(r.PhoneNumber)
	r.City = trimOptional(r.City)
	r.Qualification = trimOptional(r.Qualification)
}

// LoginRequest carries nickname credentials.
type LoginRequest struct {
	Nickname string `json:"nickname" validate:"required,max=20"`
	Password string `json:"password" validate:"required,max=30"`
}

// AuthResponse is returned by login.
type AuthResponse struct {
	Profile     ProfileResponse `json:"profile"`
	AccessToken string          `json:"access_token"`
	TokenType   string          `json:"token_type"`
	ExpiresAt   time.Time       `json:"expires_at"`
}

// SettingsRequest is a sparse update of the caller's own account. A nil
// field is left unchanged; fields irrelevant to the caller's role are ignored.
type SettingsRequest struct {
	Nickname       *string  `json:"nickname" validate:"omitempty,min=4,max=20,nickname"`
	Name           *string  `json:"name" validate:"omitempty,min=2,max=30"`
	Country        *string  `json:"country" validate:"omitempty,max=64"`
	Email          *string  `json:"email" validate:"omitempty,email,max=255"`
	PhoneNumber    *string  `json:"phone_number" validate:"omitempty,min=5,max=20"`
	PhotoPath      *string  `json:"photo_path" validate:"omitempty,max=512"`
	Password       *string  `json:"password" validate:"omitempty,min=8,max=30"`
	City           *string  `json:"city" validate:"omitempty,notblank,max=100"`
	Specifications []string `json:"specifications" validate:"omitempty,dive,required,max=100"`
	Qualification  *string  `json:"qualification" validate:"omitempty,notblank,max=100"`
	Experience     *int     `json:"experience" validate:"omitempty,min=0,max=80"`
	Locations      []string `json:"locations" validate:"omitempty,dive,required,max=200"`
	MemberIDs      []uint   `json:"member_ids" validate:"omitempty,dive,gt=0"`
	AdminRole      *string  `json:"admin_role" validate:"omitempty,oneof=helper moderator tech_admin administrator"`
	IsSuperadmin   *bool    `json:"is_superadmin"`
}

// Normalize trims the free-text fields in place. The password is left as sent.
func (r *SettingsRequest) Normalize() {
	for _, field := range []**string{&r.Nickname, &r.Name, &r.Country, &r.Email, &r.PhoneNumber, &r.City, &r.Qualification} {
		*field = trimOptional(*field)
	}
}

// PatientDetails is the patient part of a profile.
type PatientDetails struct {
	City *string `json:"city"`
}

// SpecialistDetails is the specialist part of a profile.
type SpecialistDetails struct {
	Specifications []string `json:"specifications"`
	Qualification  *string  `json:"qualification"`
	Experience     int      `json:"experience"`
}

// OrganizationDetails is the organization part of a profile.
type OrganizationDetails struct {
	Locations []string `json:"locations"`
	ClinicIDs []uint   `json:"clinic_ids"`
	MemberIDs []uint   `json:"member_ids"`
}

// AdminDetails is the admin part of a profile.
type AdminDetails struct {
	AdminRole    string `json:"admin_role"`
	IsSuperadmin bool   `json:"is_superadmin"`
}

// ProfileResponse is the full role-specific view of an account. Exactly one
// of the detail blocks is set, matching Role.
type ProfileResponse struct {
	ID           uint                 `json:"id"`
	Nickname     string               `json:"nickname"`
	Name         string               `json:"name"`
	Role         string               `json:"role"`
	Country      string               `json:"country"`
	Email        string               `json:"email"`
	PhoneNumber  string               `json:"phone_number"`
	PhotoPath    *string              `json:"photo_path"`
	IsBlocked    bool                 `json:"is_blocked"`
	CreatedAt    time.Time            `json:"created_at"`
	Patient      *PatientDetails      `json:"patient,omitempty"`
	Specialist   *SpecialistDetails   `json:"specialist,omitempty"`
	Organization *OrganizationDetails `json:"organization,omitempty"`
	Admin        *AdminDetails        `json:"admin,omitempty"`
}

// PublicProfileResponse is the view other users get; contact data is omitted.
type PublicProfileResponse struct {
	ID           uint                 `json:"id"`
	Nickname     string               `json:"nickname"`
	Name         string               `json:"name"`
	Role         string               `json:"role"`
	Country      string               `json:"country"`
	PhotoPath    *string              `json:"photo_path"`
	CreatedAt    time.Time            `json:"created_at"`
	Patient      *PatientDetails      `json:"patient,omitempty"`
	Specialist   *SpecialistDetails   `json:"specialist,omitempty"`
	Organization *OrganizationDetails `json:"organization,omitempty"`
	Admin        *AdminDetails        `json:"admin,omitempty"`
}

// NewProfileResponse converts a user with its satellite into the full profile.
// clinicIDs is only used for organizations.
func NewProfileResponse(user models.User, clinicIDs []uint) ProfileResponse {
	resp := ProfileResponse{
		ID:          user.ID,
		Nickname:    user.Nickname,
		Name:        user.Name,
		Role:        string(user.Role),
		Country:     user.Country,
		Email:       user.Email,
		PhoneNumber: user.PhoneNumber,
		PhotoPath:   user.PhotoPath,
		IsBlocked:   user.IsBlocked(),
		CreatedAt:   user.CreatedAt,
	}

	switch user.Role {
	case models.RolePatient:
		if user.Patient != nil {
			resp.Patient = &PatientDetails{City: user.Patient.City}
		}
	case models.RoleSpecialist:
		if user.Specialist != nil {
			resp.Specialist = &SpecialistDetails{
				Specifications: nonNilStrings(user.Specialist.Specifications),
				Qualification:  user.Specialist.Qualification,
				Experience:     user.Specialist.Experience,
			}
		}
	case models.RoleOrganization:
		if user.Organization != nil {
			resp.Organization = &OrganizationDetails{
				Locations: nonNilStrings(user.Organization.Locations),
				ClinicIDs: nonNilIDs(clinicIDs),
				MemberIDs: nonNilIDs(user.Organization.MemberIDs),
			}
		}
	case models.RoleAdmin:
		if user.Admin != nil {
			resp.Admin = &AdminDetails{
				AdminRole:    string(user.Admin.AdminRole),
				IsSuperadmin: user.Admin.IsSuperadmin,
			}
		}
	}

	return resp
}

// NewPublicProfileResponse strips contact and moderation data from a profile.
func NewPublicProfileResponse(user models.User, clinicIDs []uint) PublicProfileResponse {
	full := NewProfileResponse(user, clinicIDs)
	return PublicProfileResponse{
		ID:           full.ID,
		Nickname:     full.Nickname,
		Name:         full.Name,
		Role:         full.Role,
		Country:      full.Country,
		PhotoPath:    full.PhotoPath,
		CreatedAt:    full.CreatedAt,
		Patient:      full.Patient,
		Specialist:   full.Specialist,
		Organization: full.Organization,
		Admin:        full.Admin,
	}
}

func nonNilStrings(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}

func nonNilIDs(values []uint) []uint {
	if values == nil {
		return []uint{}
	}
	return values
}

// trimOptional returns a trimmed copy and keeps nil as nil. A blank value
// becomes "" and still reaches the validator's minimum length check.
func trimOptional(value *string) *string {
	if value == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*value)
	return &trimmed
}
