package utils

import "golang.org/x/crypto/bcrypt"

// Operator credentials are stored as bcrypt hashes (OPERATOR_PASSWORD_HASH).
func HashPassword(s string) ([]byte, error) {
	return bcrypt.GenerateFromPassword([]byte(s), bcrypt.DefaultCost)
}

func ComparePassword(hashed string, normal string) error {
	return bcrypt.CompareHashAndPassword([]byte(hashed), []byte(normal))
}
