package service

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDomainPolicy(t *testing.T) {
	t.Parallel()

	t.Run("allows listed domains case-insensitively", func(t *testing.T) {
		p := NewDomainPolicy([]string{"Example.COM", "corp.example.net"})

		require.True(t, p.Allowed("alice@example.com"))
		require.True(t, p.Allowed("Bob@EXAMPLE.com"))
		require.True(t, p.Allowed("carol@corp.example.net"))
		require.False(t, p.Open())
	})

	t.Run("rejects unlisted domains", func(t *testing.T) {
		p := NewDomainPolicy([]string{"example.com"})

		require.False(t, p.Allowed("mallory@gmail.com"))
		require.False(t, p.Allowed("eve@sub.example.com"))
	})

	t.Run("rejects malformed addresses", func(t *testing.T) {
		p := NewDomainPolicy([]string{"example.com"})

		require.False(t, p.Allowed("not-an-email"))
		require.False(t, p.Allowed(""))
		require.False(t, p.Allowed("@example.com@"))
	})

	t.Run("empty list allows everything", func(t *testing.T) {
		p := NewDomainPolicy(nil)

		require.True(t, p.Open())
		require.True(t, p.Allowed("anyone@anywhere.example"))
	})

	t.Run("blank entries are dropped", func(t *testing.T) {
		p := NewDomainPolicy([]string{"", "  ", "example.com"})

		require.False(t, p.Open())
		require.True(t, p.Allowed("alice@example.com"))
	})
}
