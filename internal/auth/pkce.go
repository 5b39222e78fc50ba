package auth

import (
	"crypto/rand"
	"fmt"
	"math/big"

	"github.com/desertthunder/jamlist/internal/shared"
	"golang.org/x/oauth2"
)

// DefaultVerifierLength is the longest verifier the authorization server accepts.
const DefaultVerifierLength = 128

const verifierAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

// GenerateVerifier returns length characters drawn uniformly from an alphanumeric alphabet using crypto/rand.
func GenerateVerifier(length int) (string, error) {
	if length <= 0 {
		return "", fmt.Errorf("%w: verifier length must be positive, got %d", shared.ErrInvalidArgument, length)
	}

	max := big.NewInt(int64(len(verifierAlphabet)))
	buf := make([]byte, length)
	for i := range buf {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("failed to generate verifier: %w", err)
		}
		buf[i] = verifierAlphabet[n.Int64()]
	}
	return string(buf), nil
}

// DeriveChallenge returns the S256 code challenge for verifier: base64url(sha256(verifier)) without padding.
func DeriveChallenge(verifier string) string {
	return oauth2.S256ChallengeFromVerifier(verifier)
}
