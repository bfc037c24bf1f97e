// Package txid генерирует короткие коды транзакций, которые пользователь
// указывает в комментарии к переводу. Код выводится из SHA-256 хэша
// идентификатора пользователя и момента создания, усечённого до восьми
// шестнадцатеричных символов с фиксированным префиксом TX.
package txid

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"
)

// Prefix фиксированный префикс кода транзакции, упрощает операторскую
// выверку переводов.
const Prefix = "TX"

// codeLen число hex-символов хэша в коде после префикса.
const codeLen = 8

// New возвращает код транзакции для пользователя userID в момент now.
// Параметр nonce позволяет вызывающей стороне перегенерировать код при
// коллизии с уже существующей записью.
func New(userID string, now time.Time, nonce int) string {
	seed := fmt.Sprintf("%s_%d_%d", userID, now.Unix(), nonce)
	sum := sha256.Sum256([]byte(seed))
	return Prefix + strings.ToUpper(hex.EncodeToString(sum[:]))[:codeLen]
}
