package auth

import (
	"errors"
	"time"

	"voice-orchestrator/internal/config"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// DefaultParticipantTTL is the lifetime of a caller credential. Credentials
// are never renewed; a new one is minted instead.
const DefaultParticipantTTL = time.Hour

var (
	ErrMissingIdentity = errors.New("auth: identity required")
	ErrMissingRoom     = errors.New("auth: room required")
)

// Manager signs and verifies platform access tokens with the process-wide
// API key/secret pair. It holds no mutable state and is safe for
// concurrent use.
type Manager struct {
	apiKey string
	secret []byte
}

func NewManager(cfg config.LiveKitConfig) (*Manager, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("LIVEKIT_API_KEY is required")
	}
	if cfg.APISecret == "" {
		return nil, errors.New("LIVEKIT_API_SECRET is required")
	}
	return &Manager{apiKey: cfg.APIKey, secret: []byte(cfg.APISecret)}, nil
}

func (m *Manager) APIKey() string { return m.apiKey }

// ParticipantGrant describes a credential scoped to exactly one room and
// one identity.
type ParticipantGrant struct {
	Identity string
	Name     string
	Metadata string
	Room     string

	// TTL defaults to DefaultParticipantTTL.
	TTL time.Duration
}

/* ===================== ISSUE TOKENS ===================== */

// IssueParticipant mints a join/publish/subscribe/publish-data credential.
func (m *Manager) IssueParticipant(now time.Time, p ParticipantGrant) (string, error) {
	if p.Identity == "" {
		return "", ErrMissingIdentity
	}
	if p.Room == "" {
		return "", ErrMissingRoom
	}
	ttl := p.TTL
	if ttl <= 0 {
		ttl = DefaultParticipantTTL
	}

	return m.sign(now, p.Identity, ttl, Claims{
		Name:     p.Name,
		Metadata: p.Metadata,
		Video: &VideoGrant{
			RoomJoin:       true,
			Room:           p.Room,
			CanPublish:     allow(),
			CanSubscribe:   allow(),
			CanPublishData: allow(),
		},
	})
}

// IssueService mints a short-lived bearer token for platform API calls.
func (m *Manager) IssueService(now time.Time, grant VideoGrant, ttl time.Duration) (string, error) {
	return m.sign(now, "", ttl, Claims{Video: &grant})
}

/* ===================== VERIFY TOKEN ===================== */

func (m *Manager) Verify(tokenString string, now time.Time) (Claims, error) {
	var claims Claims

	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(func() time.Time { return now }),
		jwt.WithLeeway(30*time.Second), // clock skew tolerance
		jwt.WithExpirationRequired(),
		jwt.WithIssuer(m.apiKey),
	)
	if _, err := parser.ParseWithClaims(tokenString, &claims, func(*jwt.Token) (any, error) {
		return m.secret, nil
	}); err != nil {
		return Claims{}, err
	}

	if claims.Video == nil {
		return Claims{}, errors.New("video grant missing")
	}
	return claims, nil
}

/* ===================== INTERNAL ISSUE ===================== */

func (m *Manager) sign(now time.Time, subject string, ttl time.Duration, claims Claims) (string, error) {
	claims.RegisteredClaims = jwt.RegisteredClaims{
		Issuer:    m.apiKey,
		Subject:   subject,
		NotBefore: jwt.NewNumericDate(now),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		ID:        uuid.NewString(),
	}

	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return t.SignedString(m.secret)
}
