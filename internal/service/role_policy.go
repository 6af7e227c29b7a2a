package service

import (
	"strings"

	"github.com/noah-isme/medlink-api/internal/dto"
	"github.com/noah-isme/medlink-api/internal/models"
)

// rolePolicy collects every role-conditional rule in one place: registration
// requirements, profile fields the role may change, order creation and the
// review targets it may rate.
type rolePolicy struct {
	createsOrders bool
	reviewTargets []models.ReviewTargetType
	register      func(user *models.User, payload dto.RegisterRequest) error
	settings      func(user *models.User, payload dto.SettingsRequest) error
}

var rolePolicies = map[models.Role]rolePolicy{
	models.RolePatient: {
		reviewTargets: []models.ReviewTargetType{
			models.ReviewTargetSpecialist,
			models.ReviewTargetOrganization,
			models.ReviewTargetClinic,
		},
		register: func(user *models.User, payload dto.RegisterRequest) error {
			if payload.City == nil || strings.TrimSpace(*payload.City) == "" {
				return fieldError("city is required for patients")
			}
			city := strings.TrimSpace(*payload.City)
			user.Patient = &models.PatientProfile{City: &city}
			return nil
		},
		settings: func(user *models.User, payload dto.SettingsRequest) error {
			if payload.City == nil {
				return nil
			}
			if user.Patient == nil {
				user.Patient = &models.PatientProfile{UserID: user.ID}
			}
			city := strings.TrimSpace(*payload.City)
			user.Patient.City = &city
			return nil
		},
	},
	models.RoleSpecialist: {
		createsOrders: true,
		reviewTargets: []models.ReviewTargetType{
			models.ReviewTargetOrganization,
			models.ReviewTargetClinic,
		},
		register: func(user *models.User, payload dto.RegisterRequest) error {
			specs := cleanList(payload.Specifications)
			if len(specs) == 0 {
				return fieldError("specifications are required for specialists")
			}
			if payload.Qualification == nil || strings.TrimSpace(*payload.Qualification) == "" {
				return fieldError("qualification is required for specialists")
			}
			qualification := strings.TrimSpace(*payload.Qualification)
			user.Specialist = &models.SpecialistProfile{
				Specifications: specs,
				Qualification:  &qualification,
				Experience:     payload.Experience,
			}
			return nil
		},
		settings: func(user *models.User, payload dto.SettingsRequest) error {
			if user.Specialist == nil {
				user.Specialist = &models.SpecialistProfile{UserID: user.ID}
			}
			if payload.Specifications != nil {
				specs := cleanList(payload.Specifications)
				if len(specs) == 0 {
					return fieldError("specifications must not be empty")
				}
				user.Specialist.Specifications = specs
			}
			if payload.Qualification != nil {
				qualification := strings.TrimSpace(*payload.Qualification)
				user.Specialist.Qualification = &qualification
			}
			if payload.Experience != nil {
				user.Specialist.Experience = *payload.Experience
			}
			return nil
		},
	},
	models.RoleOrganization: {
		createsOrders: true,
		reviewTargets: []models.ReviewTargetType{
			models.ReviewTargetSpecialist,
		},
		register: func(user *models.User, payload dto.RegisterRequest) error {
			locations := cleanList(payload.Locations)
			if len(locations) == 0 {
				return fieldError("locations are required for organizations")
			}
			user.Organization = &models.OrganizationProfile{
				Locations: locations,
				MemberIDs: []uint{},
			}
			return nil
		},
		settings: func(user *models.User, payload dto.SettingsRequest) error {
			if user.Organization == nil {
				user.Organization = &models.OrganizationProfile{UserID: user.ID}
			}
			if payload.Locations != nil {
				locations := cleanList(payload.Locations)
				if len(locations) == 0 {
					return fieldError("locations must not be empty")
				}
				user.Organization.Locations = locations
			}
			if payload.MemberIDs != nil {
				user.Organization.MemberIDs = uniqueIDs(payload.MemberIDs)
			}
			return nil
		},
	},
	models.RoleAdmin: {
		register: func(user *models.User, payload dto.RegisterRequest) error {
			if payload.AdminRole == "" {
				return fieldError("admin_role is required for admins")
			}
			user.Admin = &models.AdminProfile{
				AdminRole:    models.AdminRole(payload.AdminRole),
				IsSuperadmin: payload.IsSuperadmin,
			}
			return nil
		},
		// Privilege fields are gated on the administrator check in the settings service.
		settings: func(*models.User, dto.SettingsRequest) error { return nil },
	},
}

func policyFor(role models.Role) (rolePolicy, bool) {
	policy, ok := rolePolicies[role]
	return policy, ok
}

func (p rolePolicy) mayReview(target models.ReviewTargetType) bool {
	for _, allowed := range p.reviewTargets {
		if allowed == target {
			return true
		}
	}
	return false
}

func cleanList(values []string) []string {
	out := make([]string, 0, len(values))
	seen := make(map[string]struct{}, len(values))
	for _, value := range values {
		trimmed := strings.TrimSpace(value)
		if trimmed == "" {
			continue
		}
		key := strings.ToLower(trimmed)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, trimmed)
	}
	return out
}

func uniqueIDs(values []uint) []uint {
	out := make([]uint, 0, len(values))
	seen := make(map[uint]struct{}, len(values))
	for _, value := range values {
		if _, ok := seen[value]; ok {
			continue
		}
		seen[value] = struct{}{}
		out = append(out, value)
	}
	return out
}
