package identity

import "strings"

type Role string

const (
	RoleAdmin        Role = "ADMIN"
	RoleSalesManager Role = "SALES_MANAGER"
	RoleSalesRep     Role = "SALES_REP"
)

// Identity is the verified caller attached to a request by the authentication layer.
// It is never persisted by the engine.
type Identity struct {
	UserID      string `json:"user_id"`
	Email       string `json:"email"`
	Role        Role   `json:"role"`
	TenantID    string `json:"tenant_id"`
	ReportingTo string `json:"reporting_to,omitempty"`
}

// roleAliases maps provider-specific spellings onto the canonical roles.
var roleAliases = map[string]Role{
	"ADMIN":         RoleAdmin,
	"SUPER_ADMIN":   RoleAdmin,
	"SUPERADMIN":    RoleAdmin,
	"TENANT_ADMIN":  RoleAdmin,
	"SALES_MANAGER": RoleSalesManager,
	"MANAGER":       RoleSalesManager,
	"SALESMANAGER":  RoleSalesManager,
	"SALES_REP":     RoleSalesRep,
	"SALESREP":      RoleSalesRep,
	"REP":           RoleSalesRep,
	"SALES":         RoleSalesRep,
}

// NormalizeRole maps a raw role claim onto a canonical Role. Unknown spellings are
// returned upper-cased but otherwise untouched so that access checks deny them.
func NormalizeRole(raw string) Role {
	key := strings.ToUpper(strings.TrimSpace(raw))
	key = strings.NewReplacer("-", "_", " ", "_").Replace(key)
	if role, ok := roleAliases[key]; ok {
		return role
	}
	return Role(key)
}

func (r Role) IsKnown() bool {
	switch r {
	case RoleAdmin, RoleSalesManager, RoleSalesRep:
		return true
	}
	return false
}

func (r Role) String() string {
	return string(r)
}

func (i Identity) IsAdmin() bool {
	return i.Role == RoleAdmin
}

func (i Identity) IsManager() bool {
	return i.Role == RoleSalesManager
}

// Valid reports whether the identity carries the fields every access decision needs.
func (i Identity) Valid() bool {
	return strings.TrimSpace(i.UserID) != "" && strings.TrimSpace(i.TenantID) != ""
}
