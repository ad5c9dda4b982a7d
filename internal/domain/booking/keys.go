package booking

import (
	"crypto/rand"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"sync/atomic"
	"time"
)

// MaxKeyAttempts bounds id/token regeneration on collision.
const MaxKeyAttempts = 5

// KeyGenerator produces booking ids and access tokens.
type KeyGenerator interface {
	NewID() string
	NewToken() string
}

// idSeq supplies the 4-digit suffix. It starts at a random offset so separate
// processes rarely line up, and within one process 10,000 ids per millisecond
// are distinct.
var idSeq atomic.Uint32

func init() {
	var b [4]byte
	if _, err := rand.Read(b[:]); err == nil {
		idSeq.Store(binary.BigEndian.Uint32(b[:]) % 10_000)
	}
}

// RandomKeys is the production KeyGenerator.
type RandomKeys struct {
	Now func() time.Time
}

// NewID returns VLT + last 8 digits of the unix millisecond clock + 4 digits.
func (k RandomKeys) NewID() string {
	now := time.Now
	if k.Now != nil {
		now = k.Now
	}
	ms := now().UnixMilli() % 100_000_000
	return fmt.Sprintf("VLT%08d%04d", ms, idSeq.Add(1)%10_000)
}

// NewToken returns 32 random bytes, hex encoded.
func (k RandomKeys) NewToken() string {
	var b [32]byte
	if _, err := rand.Read(b[:]); err != nil {
		panic(fmt.Sprintf("booking: crypto/rand unavailable: %v", err))
	}
	return hex.EncodeToString(b[:])
}
