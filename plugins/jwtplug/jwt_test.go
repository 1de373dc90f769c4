package jwtplug

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lynxplug/runtime/dependency"
)

type captureRegistrar struct {
	named map[string]any
}

func (r *captureRegistrar) Register(value any) (dependency.Dependency, error) {
	return dependency.NewFromValue("generated", value)
}

func (r *captureRegistrar) RegisterNamed(name string, value any) error {
	if r.named == nil {
		r.named = make(map[string]any)
	}
	r.named[name] = value
	return nil
}

func startedPlugin(t *testing.T) (*TokenPlugin, *captureRegistrar) {
	t.Helper()
	p := NewTokenPlugin()
	reg := &captureRegistrar{}
	require.NoError(t, p.Attach(reg))
	require.NoError(t, p.start())
	return p, reg
}

func TestStartPublishesSigner(t *testing.T) {
	p, reg := startedPlugin(t)
	require.NotNil(t, p.Signer())
	assert.Same(t, p.Signer(), reg.named[SignerDep])
}

func TestSignCheckRoundTrip(t *testing.T) {
	p, _ := startedPlugin(t)

	token, err := p.issue("user-42")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	subject, err := p.verify(token)
	require.NoError(t, err)
	assert.Equal(t, "user-42", subject)
}

func TestCheckRejectsForeignToken(t *testing.T) {
	issuer, _ := startedPlugin(t)
	verifier, _ := startedPlugin(t)

	token, err := issuer.issue("user-42")
	require.NoError(t, err)

	// The verifier holds a different key pair.
	_, err = verifier.verify(token)
	assert.Error(t, err)
}

func TestCheckRejectsWrongIssuer(t *testing.T) {
	p := NewTokenPlugin(WithConf(&Conf{Issuer: "other", Audience: "lynx", TTLSeconds: 60}))
	require.NoError(t, p.Attach(&captureRegistrar{}))
	require.NoError(t, p.start())

	token, err := p.issue("user-42")
	require.NoError(t, err)

	strict := &Signer{conf: defaultConf(), key: p.signer.key}
	_, err = strict.Check(token)
	assert.Error(t, err)
}

func TestIssueBeforeStartFails(t *testing.T) {
	p := NewTokenPlugin()
	_, err := p.issue("user-42")
	assert.Error(t, err)
}
