package utils

import (
	"crypto/rand"
	"math/big"
	"time"

	"github.com/google/uuid"
)

// Ambiguous characters (0/O, 1/I) are left out so codes can be read aloud.
const codeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

func randomCode(n int) string {
	buf := make([]byte, n)
	limit := big.NewInt(int64(len(codeAlphabet)))
	fallback := uuid.New()
	for i := range buf {
		idx, err := rand.Int(rand.Reader, limit)
		if err != nil {
			idx = big.NewInt(int64(fallback[i%len(fallback)]) % limit.Int64())
		}
		buf[i] = codeAlphabet[idx.Int64()]
	}
	return string(buf)
}

// GenerateBookingCode returns a user-facing id.
// Format: GB-YYMMDD-XXXXXX
func GenerateBookingCode(now time.Time) string {
	return "GB-" + now.Format("060102") + "-" + randomCode(6)
}

// GenerateConfirmationCode returns the code stamped on a confirmed booking.
func GenerateConfirmationCode() string {
	return "CNF" + randomCode(7)
}
