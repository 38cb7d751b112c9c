package apiclient

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	jmespath "github.com/jmespath-community/go-jmespath"
	domainauth "github.com/target/helpdesk-portal/internal/domain/auth"
)

// tokenPayload is the credential part of login and refresh responses.
type tokenPayload struct {
	Token            string  `json:"token"`
	RefreshToken     string  `json:"refreshToken"`
	ExpiresInSeconds float64 `json:"expiresInSeconds"`
	ExpiresIn        float64 `json:"expiresIn"`
}

// maxLifetimeSeconds is the longest lifetime a time.Duration can hold.
var maxLifetimeSeconds = float64(math.MaxInt64) / float64(time.Second)

func (t tokenPayload) expiresIn() time.Duration {
	secs := t.ExpiresInSeconds
	if secs <= 0 {
		secs = t.ExpiresIn
	}
	if secs <= 0 || math.IsNaN(secs) {
		return 0
	}
	if secs >= maxLifetimeSeconds {
		return time.Duration(math.MaxInt64)
	}
	return time.Duration(secs * float64(time.Second))
}

// userPayload accepts both the nested {id,...} and the flat {userId,...} shapes.
type userPayload struct {
	ID         any    `json:"id"`
	UserID     any    `json:"userId"`
	Username   string `json:"username"`
	FullName   string `json:"fullName"`
	Email      string `json:"email"`
	Department string `json:"department"`
	Role       string `json:"role"`
	IsActive   *bool  `json:"isActive"`
}

type messagePayload struct {
	Message string `json:"message"`
	Error   string `json:"error"`
}

// decodeBody decodes a JSON object both into the token fields and into a
// generic document for JMESPath.
func decodeBody(body []byte) (tokenPayload, any, error) {
	var tokens tokenPayload
	if err := json.Unmarshal(body, &tokens); err != nil {
		return tokenPayload{}, nil, err
	}
	var doc any
	if err := json.Unmarshal(body, &doc); err != nil {
		return tokenPayload{}, nil, err
	}
	return tokens, doc, nil
}

// serverMessage extracts a human-readable message from an error body, if any.
func serverMessage(body []byte) string {
	var m messagePayload
	if err := json.Unmarshal(body, &m); err != nil {
		return ""
	}
	if s := strings.TrimSpace(m.Message); s != "" {
		return s
	}
	return strings.TrimSpace(m.Error)
}

// extractUser locates the user object with the configured JMESPath expression,
// falling back to the document root for flat payloads.
func (g *Gateway) extractUser(doc any) (domainauth.User, error) {
	found, err := jmespath.Search(g.userPath, doc)
	if err != nil {
		return domainauth.User{}, fmt.Errorf("evaluate user path %q: %w", g.userPath, err)
	}
	obj, ok := found.(map[string]any)
	if !ok {
		obj, ok = doc.(map[string]any)
	}
	if !ok {
		return domainauth.User{}, errors.New("response has no user object")
	}

	raw, err := json.Marshal(obj)
	if err != nil {
		return domainauth.User{}, fmt.Errorf("encode user object: %w", err)
	}
	var p userPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return domainauth.User{}, fmt.Errorf("decode user object: %w", err)
	}
	if strings.TrimSpace(p.Username) == "" {
		return domainauth.User{}, errors.New("user object has no username")
	}

	id := stringID(p.ID)
	if id == "" {
		id = stringID(p.UserID)
	}

	return domainauth.User{
		ID:          id,
		Username:    p.Username,
		DisplayName: p.FullName,
		Email:       p.Email,
		Department:  p.Department,
		Role:        g.normalizeRole(p.Username, p.Role),
		IsActive:    p.IsActive == nil || *p.IsActive,
	}, nil
}

// normalizeRole degrades unknown roles to the least privileged one and logs it.
func (g *Gateway) normalizeRole(username, raw string) domainauth.Role {
	if role, ok := domainauth.ParseRole(raw); ok {
		return role
	}
	g.logger.Warn("unknown role from api, using least privilege",
		"username", username,
		"role", raw,
		"fallback", domainauth.RoleEmployee)
	return domainauth.RoleEmployee
}

func stringID(v any) string {
	switch id := v.(type) {
	case string:
		return strings.TrimSpace(id)
	case float64:
		return strconv.FormatFloat(id, 'f', -1, 64)
	case nil:
		return ""
	default:
		return fmt.Sprint(id)
	}
}

// jwtLifetime reads the exp claim of a JWT without verifying it. The portal
// only needs to know when to refresh; the API remains the authority.
func jwtLifetime(token string, now time.Time) (time.Duration, bool) {
	if strings.Count(token, ".") != 2 {
		return 0, false
	}
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return 0, false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return 0, false
	}
	d := exp.Time.Sub(now)
	if d <= 0 {
		return 0, false
	}
	return d, true
}
