package auth

import (
	"github.com/golang-jwt/jwt/v5"
	lkauth "github.com/livekit/protocol/auth"
)

// VideoGrant is the platform's own grant type. Claim names come from the
// platform module, so tokens signed here parse the same as its own.
type VideoGrant = lkauth.VideoGrant

// Claims is the only token shape this service issues.
// Subject carries the participant identity; Issuer is the API key.
type Claims struct {
	jwt.RegisteredClaims

	Name     string      `json:"name,omitempty"`
	Metadata string      `json:"metadata,omitempty"`
	Video    *VideoGrant `json:"video,omitempty"`
}

func allow() *bool {
	b := true
	return &b
}
