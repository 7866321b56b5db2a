package password

import (
	"crypto/sha256"
	"encoding/base64"
	"fmt"

	usecase "doccrm/backend/internal/usecase/auth"

	"golang.org/x/crypto/bcrypt"
)

// Bcrypt hashes passwords with bcrypt at a fixed cost.
type Bcrypt struct {
	cost int
}

var _ usecase.PasswordHasher = (*Bcrypt)(nil)

// NewBcrypt validates cost; zero selects bcrypt.DefaultCost.
func NewBcrypt(cost int) (*Bcrypt, error) {
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		return nil, fmt.Errorf("bcrypt cost %d outside [%d, %d]", cost, bcrypt.MinCost, bcrypt.MaxCost)
	}
	return &Bcrypt{cost: cost}, nil
}

// maxInputBytes is the longest input bcrypt accepts.
const maxInputBytes = 72

// input returns the bytes fed to bcrypt. Passwords over maxInputBytes are
// replaced by the base64 of their SHA-256 digest, so every byte of a long
// password counts and Hash never rejects it.
func input(password string) []byte {
	if len(password) <= maxInputBytes {
		return []byte(password)
	}
	sum := sha256.Sum256([]byte(password))
	return []byte(base64.StdEncoding.EncodeToString(sum[:]))
}

// Hash returns a salted bcrypt hash of password.
func (b *Bcrypt) Hash(password string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword(input(password), b.cost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

// Compare returns nil when password matches hash.
func (b *Bcrypt) Compare(hash, password string) error {
	return bcrypt.CompareHashAndPassword([]byte(hash), input(password))
}
