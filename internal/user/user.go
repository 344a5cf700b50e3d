package user

import (
	"errors"
	"time"

	"github.com/frahmantamala/salescrm/internal/core/identity"
	userDatamodel "github.com/frahmantamala/salescrm/internal/core/datamodel/user"
	"github.com/frahmantamala/salescrm/internal/store"
)

// User is a member of a tenant's sales organisation.
type User struct {
	ID          string        `json:"id"`
	Email       string        `json:"email"`
	Name        string        `json:"name"`
	Role        identity.Role `json:"role"`
	TenantID    string        `json:"tenant_id"`
	ReportingTo string        `json:"reporting_to,omitempty"`
	IsDeleted   bool          `json:"is_deleted"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`
}

var ErrNotFound = errors.New("user not found")

func (u *User) Identity() identity.Identity {
	return identity.Identity{
		UserID:      u.ID,
		Email:       u.Email,
		Role:        u.Role,
		TenantID:    u.TenantID,
		ReportingTo: u.ReportingTo,
	}
}

func ToDataModel(u *User) *userDatamodel.User {
	m := &userDatamodel.User{
		ID:        u.ID,
		Email:     u.Email,
		Name:      u.Name,
		Role:      string(u.Role),
		TenantID:  u.TenantID,
		IsDeleted: u.IsDeleted,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
	if u.ReportingTo != "" {
		reportingTo := u.ReportingTo
		m.ReportingTo = &reportingTo
	}
	return m
}

func FromDataModel(m *userDatamodel.User) *User {
	u := &User{
		ID:        m.ID,
		Email:     m.Email,
		Name:      m.Name,
		Role:      identity.NormalizeRole(m.Role),
		TenantID:  m.TenantID,
		IsDeleted: m.IsDeleted,
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
	if m.ReportingTo != nil {
		u.ReportingTo = *m.ReportingTo
	}
	return u
}

// ToItem renders the user as a store item with the attribute names the access engine
// queries. reportingTo is left out entirely for users without a manager so that the
// attribute stays absent rather than empty.
func ToItem(u *User) store.Item {
	item := store.Item{
		"id":        u.ID,
		"email":     u.Email,
		"name":      u.Name,
		"role":      string(u.Role),
		"tenantId":  u.TenantID,
		"isDeleted": u.IsDeleted,
		"createdAt": u.CreatedAt.UTC().Format(time.RFC3339),
		"updatedAt": u.UpdatedAt.UTC().Format(time.RFC3339),
	}
	if u.ReportingTo != "" {
		item["reportingTo"] = u.ReportingTo
	}
	return item
}

func FromItem(item store.Item) *User {
	u := &User{
		ID:          item.ID(),
		Email:       item.String("email"),
		Name:        item.String("name"),
		Role:        identity.NormalizeRole(item.String("role")),
		TenantID:    item.String("tenantId"),
		ReportingTo: item.String("reportingTo"),
		IsDeleted:   item.Bool("isDeleted"),
	}
	u.CreatedAt, _ = time.Parse(time.RFC3339, item.String("createdAt"))
	u.UpdatedAt, _ = time.Parse(time.RFC3339, item.String("updatedAt"))
	return u
}
