// redact — маскирование секретов перед записью в лог.
package redact

import (
	"crypto/sha256"
	"encoding/hex"
)

// Token возвращает отпечаток токена: первые 12 hex-символов SHA-256.
// По отпечатку можно сопоставить записи одного токена, но не восстановить его.
func Token(s string) string {
	if s == "" {
		return "[EMPTY_TOKEN]"
	}
	sum := sha256.Sum256([]byte(s))
	return "sha256:" + hex.EncodeToString(sum[:])[:12]
}
