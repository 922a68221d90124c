package auth

import (
	"fmt"

	"github.com/rs/zerolog"
)

// PrivateKey is the shared secret proving key ownership. It is kept in a
// dedicated type so it cannot leak through %v/%s formatting or structured
// log fields: every printable rendering is redacted.
type PrivateKey string

// Redacted is the placeholder emitted wherever a private key would
// otherwise be printed.
const Redacted = "[REDACTED]"

// String implements fmt.Stringer. It never reveals the key material.
func (k PrivateKey) String() string {
	return Redacted
}

// GoString keeps %#v from bypassing the redaction.
func (k PrivateKey) GoString() string {
	return "auth.PrivateKey(" + Redacted + ")"
}

// Format implements fmt.Formatter so that every verb, including %x and %q,
// yields the redacted placeholder.
func (k PrivateKey) Format(f fmt.State, verb rune) {
	fmt.Fprint(f, Redacted)
}

// Reveal returns the raw key material for signing. Call sites should be
// limited to token computation and outbound query construction.
func (k PrivateKey) Reveal() string {
	return string(k)
}

// Credentials holds the API key pair issued by the catalog gateway.
// The public key travels in cleartext as a query parameter; the private
// key only ever contributes to the request hash.
type Credentials struct {
	PublicKey  string
	PrivateKey PrivateKey
}

// NewCredentials builds an immutable credential pair.
func NewCredentials(publicKey, privateKey string) Credentials {
	return Credentials{
		PublicKey:  publicKey,
		PrivateKey: PrivateKey(privateKey),
	}
}

// IsZero reports whether either half of the pair is missing.
func (c Credentials) IsZero() bool {
	return c.PublicKey == "" || c.PrivateKey == ""
}

// MarshalZerologObject logs the public key and a redacted private key.
func (c Credentials) MarshalZerologObject(e *zerolog.Event) {
	e.Str("public_key", c.PublicKey).Str("private_key", Redacted)
}
