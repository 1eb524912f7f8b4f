package transport

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// AuthConfig is the WebSocket adapter's optional session-cookie auth
// boundary (spec.md §6 Environment: WS_AUTH, JWT_SECRET,
// JWT_ALGORITHM, COOKIE_NAME, USERS_FILE). When WS_AUTH is false (the
// default), every connection is accepted unauthenticated.
type AuthConfig struct {
	Enabled    bool
	JWTSecret  string
	Algorithm  string
	CookieName string
	Users      map[string]string // username -> password, loaded from USERS_FILE
}

const defaultCookieName = "edge_c2_session"
const defaultAlgorithm = "HS256"

// AuthConfigFromEnv reads the four environment variables spec.md §6
// names into an AuthConfig. USERS_FILE, if set, is a "user:password"
// per-line credentials file used by the login handshake; its absence
// is not an error, it only disables issuing new sessions.
func AuthConfigFromEnv() (AuthConfig, error) {
	cfg := AuthConfig{
		Enabled:    strings.EqualFold(strings.TrimSpace(os.Getenv("WS_AUTH")), "true"),
		JWTSecret:  os.Getenv("JWT_SECRET"),
		Algorithm:  os.Getenv("JWT_ALGORITHM"),
		CookieName: os.Getenv("COOKIE_NAME"),
	}
	if cfg.Algorithm == "" {
		cfg.Algorithm = defaultAlgorithm
	}
	if cfg.CookieName == "" {
		cfg.CookieName = defaultCookieName
	}
	if cfg.Enabled && cfg.JWTSecret == "" {
		return cfg, errors.New("WS_AUTH=true requires JWT_SECRET")
	}
	if usersPath := os.Getenv("USERS_FILE"); usersPath != "" {
		users, err := loadUsersFile(usersPath)
		if err != nil {
			return cfg, fmt.Errorf("reading USERS_FILE: %w", err)
		}
		cfg.Users = users
	}
	return cfg, nil
}

func loadUsersFile(path string) (map[string]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	users := make(map[string]string)
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		user, pass, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		users[user] = pass
	}
	return users, scanner.Err()
}

type sessionClaims struct {
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// IssueSession mints a signed session token for a validated user.
func (c AuthConfig) IssueSession(username string) (string, error) {
	if c.JWTSecret == "" {
		return "", errors.New("no JWT secret configured")
	}
	claims := sessionClaims{Username: username}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(c.JWTSecret))
}

// ValidateSession parses and verifies a session cookie's JWT, rejecting
// anything not signed with HMAC (the only algorithm this config issues
// tokens with, regardless of what JWT_ALGORITHM an attacker claims).
func (c AuthConfig) ValidateSession(tokenString string) (string, error) {
	if c.JWTSecret == "" {
		return "", errors.New("no JWT secret configured")
	}
	token, err := jwt.ParseWithClaims(tokenString, &sessionClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return []byte(c.JWTSecret), nil
	})
	if err != nil {
		return "", err
	}
	claims, ok := token.Claims.(*sessionClaims)
	if !ok || !token.Valid {
		return "", errors.New("invalid session token")
	}
	return claims.Username, nil
}

// Authenticate checks a plaintext username/password pair against the
// users loaded from USERS_FILE.
func (c AuthConfig) Authenticate(username, password string) bool {
	if c.Users == nil {
		return false
	}
	want, ok := c.Users[username]
	return ok && want == password
}
