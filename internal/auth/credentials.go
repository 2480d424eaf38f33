package auth

import (
	"errors"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

// Credentials decorate outgoing API requests. The core never inspects them.
type Credentials interface {
	Apply(r *http.Request) error
}

type Basic struct {
	Application string
	Token       string
}

func (b Basic) Apply(r *http.Request) error {
	if b.Application == "" || b.Token == "" {
		return errors.New("basic credentials incomplete")
	}
	r.SetBasicAuth(b.Application, b.Token)
	return nil
}

// DefaultScopes are the API scopes requested when none are configured.
var DefaultScopes = []string{"symbols", "feed", "change", "orders", "summary", "accounts"}

// JWT signs a short-lived HS256 bearer token per request: iss is the client id,
// sub the application id and aud the requested scopes.
type JWT struct {
	ClientID      string
	ApplicationID string
	SharedKey     []byte
	Scopes        []string
	TTL           time.Duration

	now func() time.Time
}

func NewJWT(clientID, applicationID string, sharedKey []byte, ttl time.Duration) *JWT {
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	return &JWT{
		ClientID:      clientID,
		ApplicationID: applicationID,
		SharedKey:     sharedKey,
		Scopes:        DefaultScopes,
		TTL:           ttl,
		now:           time.Now,
	}
}

func (j *JWT) Apply(r *http.Request) error {
	tok, err := j.signToken()
	if err != nil {
		return err
	}
	r.Header.Set("Authorization", "Bearer "+tok)
	return nil
}

func (j *JWT) signToken() (string, error) {
	if j.ClientID == "" || j.ApplicationID == "" || len(j.SharedKey) == 0 {
		return "", errors.New("jwt credentials incomplete")
	}
	now := j.now().UTC()
	claims := jwt.RegisteredClaims{
		Issuer:    j.ClientID,
		Subject:   j.ApplicationID,
		Audience:  jwt.ClaimStrings(j.Scopes),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(j.TTL)),
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return t.SignedString(j.SharedKey)
}

// CheckToken compares a presented token against a bcrypt hash.
func CheckToken(hash, token string) bool {
	if hash == "" || token == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(token)) == nil
}
