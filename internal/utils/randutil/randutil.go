package randutil

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/binary"
)

func RandomString(length int) (string, error) {
	key := make([]byte, length)

	if _, err := rand.Read(key); err != nil {
		return "", err
	}

	return base64.RawURLEncoding.EncodeToString(key), nil
}

// RandomSeed returns a non-negative seed suitable for the diffusion
// worker's generator.
func RandomSeed() int64 {
	var buf [8]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return 0
	}

	return int64(binary.BigEndian.Uint64(buf[:]) >> 1)
}
