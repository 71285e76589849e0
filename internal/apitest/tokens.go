package apitest

import (
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/felixgeelhaar/approvals/internal/domain"
)

type claims struct {
	Role string `json:"role"`
	Name string `json:"name,omitempty"`
	jwt.RegisteredClaims
}

type tokenIssuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func newTokenIssuer() *tokenIssuer {
	return &tokenIssuer{
		secret: []byte("apitest-signing-key"),
		ttl:    time.Hour,
		now:    time.Now,
	}
}

func (ti *tokenIssuer) issue(user domain.User, ttl time.Duration) (string, error) {
	now := ti.now()
	c := claims{
		Role: user.Role.String(),
		Name: user.Name,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.Email,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(ti.secret)
}

func (ti *tokenIssuer) verify(token string) (domain.User, error) {
	var c claims
	_, err := jwt.ParseWithClaims(token, &c, func(*jwt.Token) (any, error) {
		return ti.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(ti.now))
	if err != nil {
		return domain.User{}, err
	}
	role, err := domain.ParseRole(c.Role)
	if err != nil {
		return domain.User{}, err
	}
	if c.Subject == "" {
		return domain.User{}, errors.New("token has no subject")
	}
	return domain.User{Email: c.Subject, Role: role, Name: c.Name}, nil
}

var rolePrefixes = []struct {
	prefix string
	role   domain.Role
}{
	{"admin", domain.RoleAdmin},
	{"l0", domain.RoleViewer},
	{"l1", domain.RoleRequester},
	{"l2", domain.RoleManager},
	{"l3", domain.RoleDirector},
}

// lookupUser derives the implicit user for email.
func lookupUser(email string) (domain.User, bool) {
	email = strings.TrimSpace(email)
	at := strings.IndexByte(email, '@')
	if at <= 0 {
		return domain.User{}, false
	}
	local := strings.ToLower(email[:at])
	for _, rp := range rolePrefixes {
		if strings.HasPrefix(local, rp.prefix) {
			return domain.User{
				Email: email,
				Role:  rp.role,
				Name:  strings.ToUpper(local[:1]) + local[1:],
			}, true
		}
	}
	return domain.User{}, false
}
