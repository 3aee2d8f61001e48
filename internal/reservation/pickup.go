package reservation

import (
	"crypto/rand"
	"fmt"
	"io"
)

const (
	PickupCodeLength   = 6
	PickupCodeAlphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"
)

// bytes at or above this value are discarded so every symbol is equally likely.
const pickupByteLimit = 256 - 256%len(PickupCodeAlphabet)

type CodeGenerator interface {
	Generate() (string, error)
}

// PickupCodes draws codes from Rand, or crypto/rand when Rand is nil.
type PickupCodes struct {
	Rand io.Reader
}

func (g PickupCodes) Generate() (string, error) {
	src := g.Rand
	if src == nil {
		src = rand.Reader
	}

	out := make([]byte, 0, PickupCodeLength)
	buf := make([]byte, PickupCodeLength*2)
	for len(out) < PickupCodeLength {
		if _, err := io.ReadFull(src, buf); err != nil {
			return "", fmt.Errorf("read random: %w", err)
		}
		for _, b := range buf {
			if int(b) >= pickupByteLimit {
				continue
			}
			out = append(out, PickupCodeAlphabet[int(b)%len(PickupCodeAlphabet)])
			if len(out) == PickupCodeLength {
				break
			}
		}
	}
	return string(out), nil
}

func ValidPickupCode(code string) bool {
	if len(code) != PickupCodeLength {
		return false
	}
	for i := 0; i < len(code); i++ {
		c := code[i]
		if !(c >= '0' && c <= '9' || c >= 'A' && c <= 'Z') {
			return false
		}
	}
	return true
}
