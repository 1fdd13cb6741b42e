package random

import (
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
)

// Alphanumeric is the default alphabet for generated strings.
const Alphanumeric = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

// NewRandomStringFrom returns a random string of the given length drawn uniformly from alphabet.
func NewRandomStringFrom(alphabet string, size int) (string, error) {
	if size <= 0 {
		return "", fmt.Errorf("invalid size %d", size)
	}
	if alphabet == "" {
		return "", errors.New("empty alphabet")
	}

	max := big.NewInt(int64(len(alphabet)))
	b := make([]byte, size)
	for i := range b {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("failed to read random source: %w", err)
		}
		b[i] = alphabet[n.Int64()]
	}

	return string(b), nil
}
