package history

import (
	"math/rand/v2"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

const fallbackAlphabet = "0123456789abcdefghijklmnopqrstuvwxyz"

// NewID returns a random UUID, or a pseudo-random id of at least 26
// characters when the system random source is unavailable.
func NewID() string {
	id, err := uuid.NewRandom()
	if err != nil {
		return fallbackID()
	}
	return id.String()
}

func fallbackID() string {
	var b strings.Builder
	b.WriteString(strconv.FormatInt(time.Now().UnixMilli(), 36))
	for b.Len() < 26 {
		b.WriteByte(fallbackAlphabet[rand.IntN(len(fallbackAlphabet))])
	}
	return b.String()
}
