package model

import "github.com/google/uuid"

// TokenParser resolves the authenticated user from a bearer token.
type TokenParser interface {
	ParseAccessToken(token string) (uuid.UUID, error)
}
