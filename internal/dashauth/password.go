// Package dashauth guards the dashboard's one mutating endpoint
// (POST /api/admin/threshold) behind a single bcrypt-hashed operator
// credential and a short-lived JWT, adapted from the teacher's
// multi-user auth package down to the one credential this domain needs.
package dashauth

import "golang.org/x/crypto/bcrypt"

// DefaultCost is the bcrypt cost factor used when hashing the operator
// password at configuration load time.
const DefaultCost = 12

// HashPassword creates a bcrypt hash of password.
func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), DefaultCost)
	if err != nil {
		return "", err
	}
	return string(bytes), nil
}

// CheckPassword reports whether password matches hash.
func CheckPassword(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
