package models

import "github.com/golang-jwt/jwt/v5"

// PrincipalRole identifies the caller category. Tokens are issued by the
// surrounding identity service; this API only validates them.
type PrincipalRole string

const (
	RoleStudent PrincipalRole = "STUDENT"
	RoleTeacher PrincipalRole = "TEACHER"
	RoleStaff   PrincipalRole = "STAFF"
)

// JWTClaims carries the bearer identity. Subject is the person id used as
// requester and owner reference throughout the API.
type JWTClaims struct {
	Role PrincipalRole `json:"role"`
	jwt.RegisteredClaims
}
