package auth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"golang.org/x/crypto/bcrypt"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/endpoints"
)

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrUnverifiedEmail    = errors.New("email not verified by provider")
)

// Provider is an interactive redirect sign-in: send the browser to
// AuthCodeURL, then trade the callback code for the identity.
type Provider interface {
	AuthCodeURL(state string) string
	Exchange(ctx context.Context, code string) (*Identity, error)
}

const googleUserInfoURL = "https://openidconnect.googleapis.com/v1/userinfo"

// GoogleProvider signs authors in with their Google account.
type GoogleProvider struct {
	config      *oauth2.Config
	userInfoURL string
}

type GoogleConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
}

func NewGoogleProvider(cfg GoogleConfig) *GoogleProvider {
	return &GoogleProvider{
		config: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Scopes:       []string{"openid", "email"},
			Endpoint:     endpoints.Google,
		},
		userInfoURL: googleUserInfoURL,
	}
}

// AuthCodeURL is where the browser goes to pick a Google account. The
// account chooser is always shown so authors can switch accounts.
func (p *GoogleProvider) AuthCodeURL(state string) string {
	return p.config.AuthCodeURL(state, oauth2.SetAuthURLParam("prompt", "select_account"))
}

// Exchange trades the callback code for the account's verified email.
func (p *GoogleProvider) Exchange(ctx context.Context, code string) (*Identity, error) {
	token, err := p.config.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("exchange code: %w", err)
	}

	resp, err := p.config.Client(ctx, token).Get(p.userInfoURL)
	if err != nil {
		return nil, fmt.Errorf("fetch userinfo: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch userinfo: status %d", resp.StatusCode)
	}

	var info struct {
		Email         string `json:"email"`
		EmailVerified bool   `json:"email_verified"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return nil, fmt.Errorf("decode userinfo: %w", err)
	}
	if !info.EmailVerified {
		return nil, ErrUnverifiedEmail
	}
	return &Identity{Email: info.Email}, nil
}

// LocalProvider checks email/password pairs against bcrypt hashes from
// configuration, for deployments without Google credentials.
type LocalProvider struct {
	hashes map[string]string
}

// ParseLocalAuthors reads "email=hash;email=hash".
func ParseLocalAuthors(raw string) (*LocalProvider, error) {
	p := &LocalProvider{hashes: map[string]string{}}
	for _, pair := range strings.Split(raw, ";") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		email, hash, ok := strings.Cut(pair, "=")
		email, hash = strings.TrimSpace(email), strings.TrimSpace(hash)
		if !ok || email == "" || hash == "" {
			return nil, fmt.Errorf("local author %q: want email=bcrypt-hash", pair)
		}
		p.hashes[email] = hash
	}
	return p, nil
}

func (p *LocalProvider) Enabled() bool {
	return p != nil && len(p.hashes) > 0
}

func (p *LocalProvider) Authenticate(email, password string) (*Identity, error) {
	hash, ok := p.hashes[strings.TrimSpace(email)]
	if !ok || !checkPasswordHash(password, hash) {
		return nil, ErrInvalidCredentials
	}
	return &Identity{Email: strings.TrimSpace(email)}, nil
}

func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	return string(bytes), err
}

func checkPasswordHash(password, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	return err == nil
}

// NewState returns a random OAuth state token.
func NewState() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.URLEncoding.EncodeToString(b), nil
}
