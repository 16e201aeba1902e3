package models

import "github.com/golang-jwt/jwt/v5"

// UserRole represents the platform roles carried in access tokens.
type UserRole string

const (
	RoleAdmin      UserRole = "ADMIN"
	RoleInstructor UserRole = "INSTRUCTOR"
	RoleLearner    UserRole = "LEARNER"
)

// JWTClaims is the access-token payload shared with the legacy backend. The
// gateway validates tokens but never issues them.
type JWTClaims struct {
	UserID   string   `json:"user_id"`
	Role     UserRole `json:"role"`
	Email    string   `json:"email"`
	FullName string   `json:"full_name"`
	jwt.RegisteredClaims
}

// ApproverRoleFor maps a platform role onto the workflow approver role, if
// the role is allowed to decide requests.
func ApproverRoleFor(role UserRole) (ApproverRole, bool) {
	switch role {
	case RoleAdmin:
		return ApproverRoleAdmin, true
	case RoleInstructor:
		return ApproverRoleInstructor, true
	default:
		return "", false
	}
}
