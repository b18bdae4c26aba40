package auth

import "golang.org/x/crypto/bcrypt"

// HashPassword returns a salted bcrypt digest of password. bcrypt rejects
// passwords longer than 72 bytes.
func HashPassword(password string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// VerifyPassword reports whether password matches digest. A malformed digest
// is simply a mismatch.
func VerifyPassword(password, digest string) bool {
	return bcrypt.CompareHashAndPassword([]byte(digest), []byte(password)) == nil
}
