package auth

import (
	"fmt"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"fieldops/fieldtrack/config"
)

var (
	fnGetStoredToken  = config.GetConfig[StoredToken]
	fnSaveStoredToken = config.SetConfig[StoredToken]
)

// StoredToken is the on-disk shape of the persisted bearer token.
type StoredToken struct {
	Token string `yaml:"token"`
}

// Provider owns the bearer token used by every authenticated call. The token
// lives in memory and is lazily loaded from the token file on first use.
// Callers that get no token skip their operation rather than attempt and fail.
type Provider struct {
	logger   *zap.SugaredLogger
	mu       sync.Mutex
	fileMu   sync.Mutex
	fileName string
	token    string
	loaded   bool
	nowFunc  func() time.Time
}

func NewProvider(logger *zap.SugaredLogger, cfg *config.AuthConfig) (*Provider, error) {
	if logger == nil || cfg == nil {
		return nil, fmt.Errorf("logger and config must be provided")
	}
	return &Provider{
		logger:   logger,
		fileName: cfg.TokenFilePath,
		nowFunc:  time.Now,
	}, nil
}

// Token returns the current bearer token. It reports false when no token is
// resolvable or when the token is a JWT whose expiry has passed.
func (p *Provider) Token() (string, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.loaded {
		stored, err := fnGetStoredToken(&p.fileMu, p.fileName, func() StoredToken { return StoredToken{} })
		if err != nil {
			p.logger.Errorf("Failed to load token file: %v", err)
		} else {
			p.token = stored.Token
		}
		p.loaded = true
	}

	if p.token == "" {
		return "", false
	}

	if expired, ok := p.tokenExpired(p.token); ok && expired {
		p.logger.Warn("Stored auth token has expired")
		return "", false
	}

	return p.token, true
}

// SetToken stores the token in memory and persists it to the token file.
func (p *Provider) SetToken(token string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.token = token
	p.loaded = true

	return fnSaveStoredToken(&p.fileMu, p.fileName, nil, nil, StoredToken{Token: token})
}

// Clear drops the token from memory and from the token file.
func (p *Provider) Clear() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.token = ""
	p.loaded = true

	return fnSaveStoredToken(&p.fileMu, p.fileName, nil, nil, StoredToken{})
}

// tokenExpired inspects the exp claim without verifying the signature; the
// server remains the authority on validity. Opaque (non-JWT) tokens report
// not-ok and are handed out as-is.
func (p *Provider) tokenExpired(token string) (expired bool, ok bool) {
	claims := jwt.MapClaims{}
	_, _, err := jwt.NewParser().ParseUnverified(token, claims)
	if err != nil {
		return false, false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return false, false
	}
	return exp.Before(p.nowFunc()), true
}
