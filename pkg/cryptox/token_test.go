package cryptox_test

import (
	"encoding/base64"
	"testing"

	"github.com/atriumhq/atrium/pkg/cryptox"
	"github.com/stretchr/testify/require"
)

func TestGenerateToken(t *testing.T) {
	token, err := cryptox.GenerateToken(cryptox.TokenSize256)
	require.NoError(t, err)

	raw, err := base64.RawURLEncoding.DecodeString(token)
	require.NoError(t, err)
	require.Len(t, raw, cryptox.TokenSize256)

	// Two tokens should never collide in practice.
	other, err := cryptox.GenerateToken(cryptox.TokenSize256)
	require.NoError(t, err)
	require.NotEqual(t, token, other)
}

func TestGenerateTokenRejectsBadSize(t *testing.T) {
	_, err := cryptox.GenerateToken(0)
	require.Error(t, err)

	_, err = cryptox.GenerateToken(-8)
	require.Error(t, err)
}

func TestFingerprintToken(t *testing.T) {
	fp1 := cryptox.FingerprintToken("some-token")
	fp2 := cryptox.FingerprintToken("some-token")
	fp3 := cryptox.FingerprintToken("other-token")

	require.Equal(t, fp1, fp2)
	require.NotEqual(t, fp1, fp3)
	require.NotEqual(t, "some-token", fp1)
}

func TestConstantTimeEquals(t *testing.T) {
	require.True(t, cryptox.ConstantTimeEquals("abc", "abc"))
	require.False(t, cryptox.ConstantTimeEquals("abc", "abd"))
	require.False(t, cryptox.ConstantTimeEquals("abc", "abcd"))
}
