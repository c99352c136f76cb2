// Package auth provides password hashing and bearer-token issuance for the
// request gateway. The live session channel performs no per-event
// re-authentication; identity there is the client-asserted join username.
package auth

import (
	"golang.org/x/crypto/bcrypt"
)

// bcryptCost matches the cost the hosted deployment was provisioned with.
const bcryptCost = 10

// HashPassword returns a one-way bcrypt hash of the given password.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// CheckPassword reports whether password matches the stored hash.
func CheckPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
