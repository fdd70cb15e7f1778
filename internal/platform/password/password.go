package password

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
)

// MaxBytes is the longest input bcrypt accepts.
const MaxBytes = 72

var ErrTooLong = errors.New("password longer than 72 bytes")

// Cost is lowered by tests that hash in a loop.
var Cost = bcrypt.DefaultCost

func Hash(plain string) ([]byte, error) {
	if len(plain) > MaxBytes {
		return nil, ErrTooLong
	}
	return bcrypt.GenerateFromPassword([]byte(plain), Cost)
}

func Check(hash []byte, plain string) error {
	return bcrypt.CompareHashAndPassword(hash, []byte(plain))
}
