package utils

import (
	"golang.org/x/crypto/bcrypt"
)

// bcryptCost is pinned rather than left at the library default so an upgrade
// cannot silently change the cost of newly hashed passwords.
const bcryptCost = 12

// HashPassword hashes a plain password using bcrypt.
func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	return string(bytes), err
}

// CheckPassword compares a plain password against a bcrypt hash. Hashes
// produced at any cost verify, so changing bcryptCost leaves existing
// credentials valid.
func CheckPassword(plain, hashed string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hashed), []byte(plain))
	return err == nil
}
