// Package resettoken выпускает одноразовые токены сброса пароля.
//
// Клиент получает открытое значение, в хранилище попадает только его SHA-256.
package resettoken

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"
)

// TTL время жизни токена сброса пароля.
const TTL = 10 * time.Minute

const tokenBytes = 32

// Generate возвращает открытый токен (64 hex-символа) и его хеш для хранения.
func Generate() (plain, hash string, err error) {
	const op = "resettoken.Generate"
	buf := make([]byte, tokenBytes)
	if _, err = rand.Read(buf); err != nil {
		return "", "", fmt.Errorf("%s: %w", op, err)
	}
	plain = hex.EncodeToString(buf)
	return plain, Hash(plain), nil
}

// Hash вычисляет хеш открытого токена в том виде, в котором он хранится.
func Hash(plain string) string {
	sum := sha256.Sum256([]byte(plain))
	return hex.EncodeToString(sum[:])
}
