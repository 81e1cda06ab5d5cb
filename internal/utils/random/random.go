package random

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

const Alphanumeric = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// String returns n symbols drawn uniformly from alphabet.
func String(n int, alphabet string) (string, error) {
	if n <= 0 || alphabet == "" {
		return "", fmt.Errorf("invalid length %d or empty alphabet", n)
	}
	max := big.NewInt(int64(len(alphabet)))
	out := make([]byte, n)
	for i := range out {
		idx, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("failed to generate random number: %w", err)
		}
		out[i] = alphabet[idx.Int64()]
	}
	return string(out), nil
}
