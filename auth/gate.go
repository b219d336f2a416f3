// Package auth decides who may author entries. The decision is a pure
// projection of the signed-in identity onto a build-time allow-list;
// nothing about it is stored with the entries.
package auth

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

const accessKey = "auth_access"

// Access is the per-request authorization snapshot every view reads.
type Access struct {
	Identity   *Identity
	Authorized bool
}

// Email returns the signed-in email or "".
func (a Access) Email() string {
	if a.Identity == nil {
		return ""
	}
	return a.Identity.Email
}

// Gate is built once at startup and shared by every module, so all views
// of a request see the same answer.
type Gate struct {
	allow    AllowList
	sessions *Sessions
}

func NewGate(allow AllowList, sessions *Sessions) *Gate {
	return &Gate{allow: allow, sessions: sessions}
}

func (g *Gate) Authorized(id *Identity) bool {
	return IsAuthorized(id, g.allow)
}

func (g *Gate) Sessions() *Sessions {
	return g.sessions
}

// Middleware derives the request's Access once from the session.
func (g *Gate) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := g.sessions.CurrentUser(c)
		c.Set(accessKey, Access{Identity: id, Authorized: g.Authorized(id)})
		c.Next()
	}
}

// FromContext returns the Access set by Middleware, or the signed-out
// zero value when the middleware did not run.
func FromContext(c *gin.Context) Access {
	if v, ok := c.Get(accessKey); ok {
		if access, ok := v.(Access); ok {
			return access
		}
	}
	return Access{}
}

// RequireAuthor sends anyone not on the allow-list to the login page.
// Signed-in but unlisted visitors are treated as signed out.
func (g *Gate) RequireAuthor() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !FromContext(c).Authorized {
			c.Redirect(http.StatusFound, "/login")
			c.Abort()
			return
		}
		c.Next()
	}
}
