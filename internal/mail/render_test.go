package mail

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVerificationEmailContainsLink(t *testing.T) {
	r, err := NewRenderer()
	require.NoError(t, err)

	body, err := r.VerificationEmail(LinkData{
		Name: "alice",
		URL:  "http://localhost:8080/api/v1/auth/verify-email?token=abc&email=alice%40x.com",
	})
	require.NoError(t, err)
	assert.Contains(t, body, "alice")
	assert.Contains(t, body, "verify-email?token=abc")
}

func TestResetEmailContainsLink(t *testing.T) {
	r, err := NewRenderer()
	require.NoError(t, err)

	body, err := r.ResetEmail(LinkData{
		Name: "alice@x.com",
		URL:  "http://localhost:8080/api/v1/auth/verify-forgot-password?token=xyz&email=alice%40x.com",
	})
	require.NoError(t, err)
	assert.Contains(t, body, "alice@x.com")
	assert.Contains(t, body, "verify-forgot-password?token=xyz")
}
