package employee

import (
	"context"

	"github.com/frahmantamala/employee-portal/internal"
	"github.com/frahmantamala/employee-portal/internal/apiclient"
)

type Employee struct {
	UserCode      internal.Code `json:"userCode"`
	Username      string        `json:"username"`
	Active        bool          `json:"active"`
	ImageURL      string        `json:"image_url,omitempty"`
	WalletAddress string        `json:"wallet_address,omitempty"`
	RoleID        int           `json:"role_id,omitempty"`
}

func (e Employee) Key() internal.Code {
	return e.UserCode
}

// API is the subset of the portal client used by the employee service.
type API interface {
	Do(ctx context.Context, method, path string, body, out interface{}) error
	Upload(ctx context.Context, method, path string, form *apiclient.Form, out interface{}) error
}
