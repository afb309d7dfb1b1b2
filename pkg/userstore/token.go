// Package userstore hashes and verifies the bearer tokens used to
// authenticate /submit_work requests. Token hashing, rather than
// storing tokens in the clear, is the one piece of the trust model the
// core does take seriously (spec §9 scopes out Byzantine-robust work
// verification, but not credential storage).
package userstore

import (
	"golang.org/x/crypto/bcrypt"
)

// HashToken hashes a plaintext token for storage as User.token_hash.
func HashToken(token string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(token), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// VerifyToken reports whether token matches the stored hash.
func VerifyToken(tokenHash, token string) bool {
	return bcrypt.CompareHashAndPassword([]byte(tokenHash), []byte(token)) == nil
}
