package auth

import (
	"github.com/ecomhq/storefront-backend/pkg/enums"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// AccessTokenPayload captures the data available when minting a JWT.
type AccessTokenPayload struct {
	SubjectID uuid.UUID
	Username  string
	Role      enums.Role
	JTI       string
}

// AccessTokenClaims represents the typed JWT issued to clients.
type AccessTokenClaims struct {
	SubjectID uuid.UUID  `json:"subject_id"`
	Username  string     `json:"username"`
	Role      enums.Role `json:"role"`
	jwt.RegisteredClaims
}
