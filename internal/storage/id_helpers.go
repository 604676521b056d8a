package storage

import (
	"crypto/rand"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"time"
)

func generateID() (string, error) {
	bytes := make([]byte, 16)
	if _, err := rand.Read(bytes); err != nil {
		return "", fmt.Errorf("generate id: %w", err)
	}
	return hex.EncodeToString(bytes), nil
}

// generateWatchKey derives the shareable numeric key for a video. The key is
// based on the publish timestamp in milliseconds, with random low bits mixed
// in so that two uploads landing in the same millisecond stay distinct.
func generateWatchKey(now time.Time) (int64, error) {
	var noise [2]byte
	if _, err := rand.Read(noise[:]); err != nil {
		return 0, fmt.Errorf("generate watch key: %w", err)
	}
	key := now.UnixMilli()*1000 + int64(binary.BigEndian.Uint16(noise[:])%1000)
	if key < 0 {
		key = -key
	}
	return key, nil
}
