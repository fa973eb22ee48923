package utils

import (
    "crypto/sha256"
    "encoding/hex"
)

// HashAuthRef returns the SHA-256 hex digest of a provider
// authorization reference.  Only the hash is persisted so a leaked
// database row cannot be correlated back to the provider-side hold.
func HashAuthRef(raw string) string {
    sum := sha256.Sum256([]byte(raw))
    return hex.EncodeToString(sum[:])
}
