package crypto

import (
	"crypto/rand"
	"errors"
	"math"
	"unicode/utf8"
)

const (
	defaultAlphabet string = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789_-"
	RequestIDSize   int    = 16 // 96 bits, plenty for correlating log lines
	maxAlphabetSize int    = 255
	minAlphabetSize int    = 8
)

var (
	ErrAlphabetTooLong     = errors.New("alphabet must contain no more than 255 characters")
	ErrAlphabetTooShort    = errors.New("alphabet must contain at least 8 characters")
	ErrAlphabetInvalidUTF8 = errors.New("alphabet must contain valid UTF-8")
	ErrAlphabetNotASCII    = errors.New("alphabet must contain only ASCII characters")
)

// IDGenerator produces nanoid-style random identifiers. The API client
// stamps one on every request as X-Request-ID.
type IDGenerator struct {
	alphabet string
	mask     int
	size     int
}

func getMask(alphabetLen int) int {
	for i := 1; i <= 8; i++ {
		mask := (2 << uint(i)) - 1
		if mask > alphabetLen-1 {
			return mask
		}
	}
	return maxAlphabetSize
}

// NewIDGenerator builds a generator over alphabet; an empty alphabet uses
// the URL-safe default. size <= 0 uses RequestIDSize.
func NewIDGenerator(alphabet string, size int) (*IDGenerator, error) {
	if alphabet == "" {
		alphabet = defaultAlphabet
	}
	if size <= 0 {
		size = RequestIDSize
	}

	if !utf8.ValidString(alphabet) {
		return nil, ErrAlphabetInvalidUTF8
	}
	// New indexes by byte position
	for _, r := range alphabet {
		if r > 127 {
			return nil, ErrAlphabetNotASCII
		}
	}
	if len(alphabet) > maxAlphabetSize {
		return nil, ErrAlphabetTooLong
	}
	if len(alphabet) < minAlphabetSize {
		return nil, ErrAlphabetTooShort
	}

	return &IDGenerator{
		alphabet: alphabet,
		mask:     getMask(len(alphabet)),
		size:     size,
	}, nil
}

// New returns a fresh identifier.
func (g *IDGenerator) New() (string, error) {
	alphabetLen := len(g.alphabet)
	step := int(math.Ceil(1.6 * float64(g.mask*g.size) / float64(alphabetLen)))

	id := make([]byte, g.size)
	buffer := make([]byte, step)

	for position := 0; position < g.size; {
		if _, err := rand.Read(buffer); err != nil {
			return "", err
		}
		for i := 0; i < step && position < g.size; i++ {
			// reject indices past the alphabet to keep the distribution uniform
			index := buffer[i] & byte(g.mask)
			if int(index) < alphabetLen {
				id[position] = g.alphabet[index]
				position++
			}
		}
	}

	return string(id), nil
}

var requestIDs, _ = NewIDGenerator("", RequestIDSize)

// RequestID returns an identifier from the default generator, or "" if the
// system random source fails.
func RequestID() string {
	id, err := requestIDs.New()
	if err != nil {
		return ""
	}
	return id
}
