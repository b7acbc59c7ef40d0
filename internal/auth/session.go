// Package auth is the admin session gate: cookie sessions plus a bcrypt
// credential check. It knows nothing about what the admin endpoints do.
package auth

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/sessions"
	"golang.org/x/crypto/bcrypt"
)

const (
	sessionName = "shabu_session"
	authKey     = "authenticated"
)

type Gate struct {
	store    *sessions.CookieStore
	user     string
	passHash string
}

func New(secret, user, passHash string) *Gate {
	store := sessions.NewCookieStore([]byte(secret))
	store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   3600,
		HttpOnly: true,
	}
	return &Gate{store: store, user: user, passHash: passHash}
}

// HashPassword is a helper for provisioning ADMIN_PASS_HASH.
func HashPassword(password string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	return string(b), err
}

// Authenticate checks the credentials. An empty configured hash disables
// login entirely rather than allowing everything.
func (g *Gate) Authenticate(username, password string) bool {
	if g.passHash == "" || username != g.user {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(g.passHash), []byte(password)) == nil
}

func (g *Gate) SignIn(c *gin.Context) error {
	s, _ := g.store.Get(c.Request, sessionName)
	s.Values[authKey] = true
	return s.Save(c.Request, c.Writer)
}

func (g *Gate) SignOut(c *gin.Context) error {
	s, _ := g.store.Get(c.Request, sessionName)
	s.Values[authKey] = false
	s.Options.MaxAge = -1
	return s.Save(c.Request, c.Writer)
}

func (g *Gate) IsAuthenticated(c *gin.Context) bool {
	s, _ := g.store.Get(c.Request, sessionName)
	ok, _ := s.Values[authKey].(bool)
	return ok
}

// RequireAdmin aborts with 401 when the caller has no admin session.
func (g *Gate) RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !g.IsAuthenticated(c) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		c.Next()
	}
}
