package simulator

import (
	"encoding/hex"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"
)

const (
	publicKeyPrefix = "G"
	secretKeyPrefix = "S"
	keyBodyLength   = 55
	txIDPrefix      = "mock_"

	// Regeneration attempts after an identifier collision.
	maxAllocAttempts = 16
)

// newKey returns prefix followed by 55 upper-case hex characters.
func newKey(entropy io.Reader, prefix string) (string, error) {
	buf := make([]byte, (keyBodyLength+1)/2)
	if _, err := io.ReadFull(entropy, buf); err != nil {
		return "", fmt.Errorf("reading key entropy: %w", err)
	}
	body := strings.ToUpper(hex.EncodeToString(buf))[:keyBodyLength]
	return prefix + body, nil
}

// newTransactionID returns "mock_" followed by 32 lower-case hex characters.
func newTransactionID(entropy io.Reader) (string, error) {
	id, err := uuid.NewRandomFromReader(entropy)
	if err != nil {
		return "", fmt.Errorf("reading transaction id entropy: %w", err)
	}
	return txIDPrefix + hex.EncodeToString(id[:]), nil
}
