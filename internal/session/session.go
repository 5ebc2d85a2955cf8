package session

import (
	"fmt"
	"strings"

	"github.com/frahmantamala/employee-portal/internal"
)

// Durable entry keys.
const (
	KeyToken = "authToken"
	KeyUser  = "user"
)

const (
	RoleAdministrator = 1
	RoleStandardUser  = 3
)

// Session is the authenticated state. A zero Token means logged out and
// User must then be ignored.
type Session struct {
	Token string
	User  *UserRecord
}

func (s Session) IsLoggedIn() bool {
	return s.Token != ""
}

// UserRecord is the profile returned by the login endpoint.
type UserRecord struct {
	ID            internal.Code `json:"id"`
	Username      string        `json:"username"`
	RoleID        int           `json:"role_id"`
	WalletAddress string        `json:"wallet_address,omitempty"`
	PrivateKey    string        `json:"private_key,omitempty"`
	ImageURL      string        `json:"image_url,omitempty"`
	CreatedAt     string        `json:"created_at,omitempty"`
	UpdatedAt     string        `json:"updated_at,omitempty"`
}

func (u *UserRecord) IsAdmin() bool {
	return u != nil && u.RoleID == RoleAdministrator
}

// AvatarURL resolves the stored image path against the image host.
func (u *UserRecord) AvatarURL(gateway string) string {
	if u.ImageURL == "" {
		return ""
	}
	return strings.TrimRight(gateway, "/") + "/" + strings.TrimLeft(u.ImageURL, "/")
}

func (u *UserRecord) RoleLabel() string {
	switch u.RoleID {
	case RoleAdministrator:
		return "Administrator"
	case RoleStandardUser:
		return "Standard User"
	default:
		return fmt.Sprintf("Role ID: %d", u.RoleID)
	}
}

type Credentials struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}
