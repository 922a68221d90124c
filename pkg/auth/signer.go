// Package auth implements the catalog gateway's per-request authentication
// scheme: every GET carries a timestamp nonce, the public key, and an md5
// digest over timestamp+privateKey+publicKey.
package auth

import (
	"crypto/md5" //nolint:gosec // digest algorithm mandated by the gateway auth contract
	"encoding/hex"
	"strconv"
	"time"
)

// NonceFunc produces a value unique per outgoing request. The gateway
// accepts any string as long as the hash was computed over the same value;
// uniqueness keeps signed URLs from being replayable verbatim.
type NonceFunc func() string

// Timestamp is the default NonceFunc: the current Unix time in
// nanoseconds. Successive calls on any realistic clock never collide.
func Timestamp() string {
	return strconv.FormatInt(time.Now().UnixNano(), 10)
}

// Sign computes the request hash for one outgoing call.
//
// The digest is md5 over the concatenation ts+privateKey+publicKey, rendered
// as lowercase hex. The order is fixed by the gateway; changing it yields
// tokens the server rejects. Sign is a pure function: identical inputs
// always produce the identical token, so nonce freshness is the caller's
// responsibility.
func Sign(ts string, creds Credentials) string {
	sum := md5.Sum([]byte(ts + creds.PrivateKey.Reveal() + creds.PublicKey)) //nolint:gosec
	return hex.EncodeToString(sum[:])
}
