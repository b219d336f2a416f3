package auth

import (
	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
)

const (
	sessionEmailKey = "author_email"
	sessionStateKey = "oauth_state"
)

// Identity is who the identity provider says the visitor is. A nil
// *Identity means nobody is signed in.
type Identity struct {
	Email string
}

// Sessions keeps the signed-in identity in the cookie session. It needs
// the sessions middleware on the router.
type Sessions struct{}

func NewSessions() *Sessions {
	return &Sessions{}
}

func (s *Sessions) CurrentUser(c *gin.Context) *Identity {
	session := sessions.Default(c)
	email, _ := session.Get(sessionEmailKey).(string)
	if email == "" {
		return nil
	}
	return &Identity{Email: email}
}

func (s *Sessions) SignIn(c *gin.Context, id *Identity) error {
	session := sessions.Default(c)
	session.Set(sessionEmailKey, id.Email)
	return session.Save()
}

func (s *Sessions) SignOut(c *gin.Context) error {
	session := sessions.Default(c)
	session.Clear()
	return session.Save()
}

// SaveState stores the OAuth state token for the callback to check.
func (s *Sessions) SaveState(c *gin.Context, state string) error {
	session := sessions.Default(c)
	session.Set(sessionStateKey, state)
	return session.Save()
}

// TakeState returns the stored OAuth state and removes it.
func (s *Sessions) TakeState(c *gin.Context) string {
	session := sessions.Default(c)
	state, _ := session.Get(sessionStateKey).(string)
	session.Delete(sessionStateKey)
	session.Save()
	return state
}
