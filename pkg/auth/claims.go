package auth

import (
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/growthloop/matrixpay-backend/pkg/enums"
)

// AccessTokenPayload captures the data available when minting a JWT.
type AccessTokenPayload struct {
	MemberID   uuid.UUID
	MemberCode string
	Role       enums.MemberRole
	JTI        string
}

// AccessTokenClaims represents the typed JWT issued to clients.
type AccessTokenClaims struct {
	MemberID   uuid.UUID        `json:"member_id"`
	MemberCode string           `json:"member_code"`
	Role       enums.MemberRole `json:"role"`
	jwt.RegisteredClaims
}
