package security

import (
	"crypto/rand"
	"fmt"
)

// codeAlphabet has 32 symbols with look-alikes (0/O, 1/I) removed, so a random
// byte masked to 5 bits maps onto it without bias.
const codeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

const VerificationCodeLength = 6

func GenerateCode(length int) (string, error) {
	if length <= 0 {
		length = VerificationCodeLength
	}

	buf := make([]byte, length)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate code: %w", err)
	}

	out := make([]byte, length)
	for i, b := range buf {
		out[i] = codeAlphabet[b&31]
	}
	return string(out), nil
}
