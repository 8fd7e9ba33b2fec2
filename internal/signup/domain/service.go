// Package domain describes owner registration: one request creates the
// organization and its owner member atomically.
package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	memberdomain "github.com/framehaus/callsheet/internal/member/domain"
	orgdomain "github.com/framehaus/callsheet/internal/organization/domain"
)

var ErrInvalidRequest = errors.New("invalid_signup_request")

// Request carries the owner registration payload.
type Request struct {
	OrgName  string `json:"org_name"`
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Result is the freshly provisioned tenant.
type Result struct {
	OrgID        snowflake.ID
	Organization orgdomain.Organization
	Owner        memberdomain.Member
}

type Service interface {
	Signup(ctx context.Context, req Request) (*Result, error)
}
