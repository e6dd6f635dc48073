package mretry

import (
	"crypto/rand"
	"encoding/binary"
	"math"
	"time"
)

// Backoff computes the delay before attempt (1-indexed), exponential with
// symmetric jitter: base * 2^(attempt-1), capped at MaxBackoff, then
// scaled by a factor in [1-JitterFactor, 1+JitterFactor].
func (c Config) Backoff(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}

	exp := math.Pow(2, float64(attempt-1))

	raw := float64(c.InitialBackoff) * exp
	if cap := float64(c.MaxBackoff); raw > cap {
		raw = cap
	}

	jitterRange := raw * c.JitterFactor
	offset := (SecureRandomFloat64()*2 - 1) * jitterRange

	delay := time.Duration(raw + offset)
	if delay < 0 {
		delay = 0
	}

	return delay
}

// SecureRandomFloat64 returns a crypto-secure random float64 in [0, 1),
// used as the jitter source for backoff scheduling.
func SecureRandomFloat64() float64 {
	var b [8]byte

	if _, err := rand.Read(b[:]); err != nil {
		return 0.5
	}

	// 53 bits of randomness, matching float64's mantissa width.
	const mantissaBits = 53

	n := binary.BigEndian.Uint64(b[:]) >> (64 - mantissaBits)

	return float64(n) / float64(uint64(1)<<mantissaBits)
}
