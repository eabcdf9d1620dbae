package domain

// Identity is the normalized result of a completed provider handshake.
// Provider-specific claim shapes are flattened into this struct at the
// provider boundary; nothing downstream ever inspects raw claims.
type Identity struct {
	Email       string
	DisplayName string
}
