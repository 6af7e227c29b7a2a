package dto

import (
	"time"

	"github.com/noah-isme/medlink-api/internal/models"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// PaginationMeta captures pagination metadata for list responses.
type PaginationMeta struct {
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	TotalItems int64 `json:"total_items"`
	TotalPages int   `json:"total_pages"`
}

// NormalizePage clamps paging input to sane values.
func NormalizePage(page, pageSize int) (int, int) {
	if page <= 0 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	return page, pageSize
}

// NewPaginationMeta computes the page count for a window.
func NewPaginationMeta(page, pageSize int, total int64) PaginationMeta {
	totalPages := 0
	if pageSize > 0 {
		totalPages = int((total + int64(pageSize) - 1) / int64(pageSize))
	}
	return PaginationMeta{
		Page:       page,
		PageSize:   pageSize,
		TotalItems: total,
		TotalPages: totalPages,
	}
}

// AdminUserListRequest defines filters for listing accounts.
type AdminUserListRequest struct {
	Page     int    `query:"page"`
	PageSize int    `query:"page_size"`
	Role     string `query:"role" validate:"omitempty,oneof=patient specialist organization admin"`
}

// AdminUserResponse serializes an account for admin endpoints.
type AdminUserResponse struct {
	ID          uint       `json:"id"`
	Nickname    string     `json:"nickname"`
	Name        string     `json:"name"`
	Role        string     `json:"role"`
	Email       string     `json:"email"`
	PhoneNumber string     `json:"phone_number"`
	Country     string     `json:"country"`
	IsBlocked   bool       `json:"is_blocked"`
	BlockReason string     `json:"block_reason,omitempty"`
	BlockedAt   *time.Time `json:"blocked_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

// AdminUserListResponse wraps a page of accounts.
type AdminUserListResponse struct {
	Items      []AdminUserResponse `json:"items"`
	Pagination PaginationMeta      `json:"pagination"`
}

// NewAdminUserResponse converts a user model into the admin view.
func NewAdminUserResponse(user models.User) AdminUserResponse {
	resp := AdminUserResponse{
		ID:          user.ID,
		Nickname:    user.Nickname,
		Name:        user.Name,
		Role:        string(user.Role),
		Email:       user.Email,
		PhoneNumber: user.PhoneNumber,
		Country:     user.Country,
		IsBlocked:   user.IsBlocked(),
		CreatedAt:   user.CreatedAt,
	}
	if user.Blocked != nil {
		blockedAt := user.Blocked.BlockedAt
		resp.BlockReason = user.Blocked.Reason
		resp.BlockedAt = &blockedAt
	}
	return resp
}

// NewAdminUserResponseSlice converts users into admin views.
func NewAdminUserResponseSlice(users []models.User) []AdminUserResponse {
	out := make([]AdminUserResponse, 0, len(users))
	for _, user := range users {
		out = append(out, NewAdminUserResponse(user))
	}
	return out
}

// BlockUserRequest carries the reason stored with the block marker.
type BlockUserRequest struct {
	Reason string `json:"reason" validate:"required,notblank,min=3,max=500"`
}

// AdminPrivilegesRequest changes the privilege fields of an admin account.
type AdminPrivilegesRequest struct {
	AdminRole    *string `json:"admin_role" validate:"omitempty,oneof=helper moderator tech_admin administrator"`
	IsSuperadmin *bool   `json:"is_superadmin"`
}

// StatisticsResponse summarises marketplace activity for administrators.
type StatisticsResponse struct {
	TotalUsers        int64            `json:"total_users"`
	UsersByRole       map[string]int64 `json:"users_by_role"`
	BlockedUsers      int64            `json:"blocked_users"`
	Clinics           int64            `json:"clinics"`
	OrdersByStatus    map[string]int64 `json:"orders_by_status"`
	ResponsesByStatus map[string]int64 `json:"responses_by_status"`
	Reviews           int64            `json:"reviews"`
	GeneratedAt       time.Time        `json:"generated_at"`
}
