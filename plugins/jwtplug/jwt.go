// Package jwtplug provides the token plugin. It owns an ECDSA signing key,
// publishes a Signer as a named dependency, and issues or verifies tokens
// on the auth events.
package jwtplug

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"fmt"
	"time"

	"github.com/go-kratos/kratos/v2/config"
	"github.com/golang-jwt/jwt/v5"

	"github.com/lynxplug/runtime/handler"
	"github.com/lynxplug/runtime/plugin"
)

const (
	pluginName        = "auth.token"
	pluginVersion     = "v1.0.0"
	pluginDescription = "jwt token plugin"
	confPrefix        = "lynx.auth"

	// SignerDep is the dependency name the Signer is published under.
	SignerDep = "auth.signer"
	// SubjectDep is the scoped dependency naming the subject a token is
	// issued for.
	SubjectDep = "auth.subject"
	// TokenDep is the scoped dependency carrying a token to verify.
	TokenDep = "auth.token"
)

// Conf mirrors the lynx.auth configuration block.
type Conf struct {
	Issuer     string `json:"issuer"`
	Audience   string `json:"audience"`
	TTLSeconds int    `json:"ttl_seconds"`
}

func defaultConf() *Conf {
	return &Conf{Issuer: "lynx", Audience: "lynx", TTLSeconds: 3600}
}

// Signer signs and verifies tokens with the plugin's key pair.
type Signer struct {
	conf *Conf
	key  *ecdsa.PrivateKey
}

// Sign issues a token for subject with the configured issuer, audience,
// and lifetime.
func (s *Signer) Sign(subject string) (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Issuer:    s.conf.Issuer,
		Subject:   subject,
		Audience:  jwt.ClaimStrings{s.conf.Audience},
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(time.Duration(s.conf.TTLSeconds) * time.Second)),
	}
	t := jwt.NewWithClaims(jwt.SigningMethodES256, claims)
	return t.SignedString(s.key)
}

// Check parses token and reports the subject it was issued for.
func (s *Signer) Check(token string) (string, error) {
	parsed, err := jwt.ParseWithClaims(token, &jwt.RegisteredClaims{}, func(t *jwt.Token) (any, error) {
		return &s.key.PublicKey, nil
	}, jwt.WithIssuer(s.conf.Issuer), jwt.WithAudience(s.conf.Audience))
	if err != nil {
		return "", err
	}
	claims, ok := parsed.Claims.(*jwt.RegisteredClaims)
	if !ok || !parsed.Valid {
		return "", fmt.Errorf("jwtplug: token claims invalid")
	}
	return claims.Subject, nil
}

// TokenPlugin owns the key pair and the Signer.
type TokenPlugin struct {
	plugin.Base
	conf   *Conf
	signer *Signer
}

// Option customizes the plugin at construction.
type Option func(*TokenPlugin)

// WithConfig scans the lynx.auth configuration block over the defaults.
func WithConfig(v config.Value) Option {
	return func(p *TokenPlugin) {
		if err := v.Scan(p.conf); err != nil {
			panic(fmt.Errorf("jwtplug: scanning %s config: %w", confPrefix, err))
		}
	}
}

// WithConf replaces the configuration wholesale.
func WithConf(c *Conf) Option {
	return func(p *TokenPlugin) { p.conf = c }
}

// NewTokenPlugin builds the plugin with defaults overlaid by opts.
func NewTokenPlugin(opts ...Option) *TokenPlugin {
	p := &TokenPlugin{conf: defaultConf()}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Name returns the plugin's registered name.
func (p *TokenPlugin) Name() string { return pluginName }

// Signer returns the signer, nil before initialization.
func (p *TokenPlugin) Signer() *Signer { return p.signer }

// Handlers declares the plugin's lifecycle and event handlers.
func (p *TokenPlugin) Handlers() []handler.Descriptor {
	return []handler.Descriptor{
		handler.Init(p.start),
		handler.Destroy(p.stop),
		handler.Event("auth.token.issue", p.issue, SubjectDep),
		handler.Event("auth.token.verify", p.verify, TokenDep),
	}
}

func (p *TokenPlugin) start() error {
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return fmt.Errorf("jwtplug: generating key: %w", err)
	}
	p.signer = &Signer{conf: p.conf, key: key}
	return p.RegisterNamed(SignerDep, p.signer)
}

func (p *TokenPlugin) stop() error {
	p.signer = nil
	return nil
}

// issue signs a token for the subject supplied in the event scope.
func (p *TokenPlugin) issue(subject string) (string, error) {
	if p.signer == nil {
		return "", fmt.Errorf("jwtplug: signer not started")
	}
	return p.signer.Sign(subject)
}

// verify checks the token supplied in the event scope and returns its
// subject.
func (p *TokenPlugin) verify(token string) (string, error) {
	if p.signer == nil {
		return "", fmt.Errorf("jwtplug: signer not started")
	}
	return p.signer.Check(token)
}
