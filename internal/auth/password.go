package auth

import "golang.org/x/crypto/bcrypt"

// VerifyPassword compares a plaintext credential against a stored bcrypt hash.
// The comparison is salted and constant-time inside bcrypt. An empty hash
// always fails; callers that need to distinguish "no password login available"
// must check for the absent hash before calling.
func VerifyPassword(plaintext string, hash []byte) bool {
	if len(hash) == 0 {
		return false
	}
	return bcrypt.CompareHashAndPassword(hash, []byte(plaintext)) == nil
}
