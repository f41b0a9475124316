package models

import "github.com/golang-jwt/jwt/v5"

// AdminRole enumerates the access levels the identity gate can resolve.
type AdminRole string

const (
	RoleMasterAdmin AdminRole = "master_admin"
	RoleSubAdmin    AdminRole = "sub_admin"
	RoleSuperAdmin  AdminRole = "super_admin"
)

// JWTClaims is the session token payload issued after gate resolution.
type JWTClaims struct {
	Role     AdminRole `json:"role"`
	SchoolID string    `json:"school_id,omitempty"`
	AdminID  string    `json:"admin_id,omitempty"`
	jwt.RegisteredClaims
}

// LoginRequest carries the claimed identifier and secret.
type LoginRequest struct {
	LoginID  string `json:"login_id" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// LoginResponse returns the resolved role, its school scope and a session
// token for subsequent requests.
type LoginResponse struct {
	Role      AdminRole `json:"role"`
	School    *School   `json:"school,omitempty"`
	AdminID   string    `json:"admin_id,omitempty"`
	Token     string    `json:"token"`
	ExpiresIn int64     `json:"expires_in"`
}
