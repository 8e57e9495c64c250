// Package namegen produces synthetic form input: post codes and customer
// names.
package namegen

import (
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"
)

const (
	// PostCodeLength is the number of digits of a generated post code.
	PostCodeLength = 10
	// DefaultNameLength is the length of RandomAlphanumericName names.
	DefaultNameLength = 5

	alphanumeric = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"
)

// ErrInvalidPostCode is returned by NameFromPostCode for a chunk that is
// not two decimal digits.
var ErrInvalidPostCode = errors.New("invalid post code")

// Generator draws post codes and names from its own random source. It is
// safe for concurrent use.
type Generator struct {
	mu sync.Mutex
	r  *rand.Rand
}

// New returns a Generator with a fixed seed; equal seeds give equal
// sequences.
func New(seed int64) *Generator {
	return &Generator{r: rand.New(rand.NewSource(seed))}
}

// NewRandom returns a Generator seeded from the current time.
func NewRandom() *Generator {
	return New(time.Now().UnixNano())
}

func (g *Generator) pick(alphabet string, n int) string {
	g.mu.Lock()
	defer g.mu.Unlock()
	var sb strings.Builder
	sb.Grow(n)
	for i := 0; i < n; i++ {
		sb.WriteByte(alphabet[g.r.Intn(len(alphabet))])
	}
	return sb.String()
}

// PostCode returns PostCodeLength independently drawn decimal digits.
func (g *Generator) PostCode() string {
	return g.pick(alphanumeric[:10], PostCodeLength)
}

// AlphanumericName returns length characters drawn uniformly from 0-9, A-Z
// and a-z. A negative length is treated as zero.
func (g *Generator) AlphanumericName(length int) string {
	if length < 0 {
		length = 0
	}
	return g.pick(alphanumeric, length)
}

var std = NewRandom()

// RandomPostCode returns a post code from a process-wide Generator.
func RandomPostCode() string {
	return std.PostCode()
}

// RandomAlphanumericName returns a name of length characters from a
// process-wide Generator.
func RandomAlphanumericName(length int) string {
	return std.AlphanumericName(length)
}

// NameFromPostCode maps every two-digit chunk n of code to the letter
// 'a'+n%26. A trailing odd character is ignored, so "1234567890" gives
// "mieam" and "000000000" gives "aaaa".
func NameFromPostCode(code string) (string, error) {
	var sb strings.Builder
	for i := 0; i+2 <= len(code); i += 2 {
		hi, lo := code[i], code[i+1]
		if !isDigit(hi) || !isDigit(lo) {
			return "", fmt.Errorf("%w %q: chunk %q at %d is not two digits", ErrInvalidPostCode, code, code[i:i+2], i)
		}
		n := int(hi-'0')*10 + int(lo-'0')
		sb.WriteByte(byte('a' + n%26))
	}
	return sb.String(), nil
}

func isDigit(c byte) bool {
	return '0' <= c && c <= '9'
}
