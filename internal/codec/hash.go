package codec

import "fmt"

// HashPassword returns the DJB2 hash of the password as lowercase hex.
// DJB2 is kept for compatibility with existing snapshot files; it is not
// a secure password hash and must not be treated as one.
func HashPassword(password string) string {
	var hash uint32 = 5381
	for i := 0; i < len(password); i++ {
		hash = ((hash << 5) + hash) + uint32(password[i])
	}
	return fmt.Sprintf("%x", hash)
}

// VerifyPassword reports whether the password hashes to digest.
func VerifyPassword(password, digest string) bool {
	return HashPassword(password) == digest
}
