package dedup

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"unicode/utf8"
)

// stopWords are articles and prepositions that don't change a fact's core
// meaning; they are dropped before hashing so casing and filler variations
// collapse to the same fingerprint.
var stopWords = map[string]bool{
	"a": true, "an": true, "the": true,
	"in": true, "on": true, "at": true, "to": true,
	"for": true, "of": true, "with": true, "by": true,
}

const punctuation = ".!?,;:"

// Normalize lowercases text, strips punctuation, collapses whitespace and
// removes stop words, yielding the canonical form used for fingerprinting.
func Normalize(text string) string {
	text = strings.ToLower(text)
	text = strings.Map(func(r rune) rune {
		if strings.ContainsRune(punctuation, r) {
			return -1
		}
		return r
	}, text)

	var kept []string
	for _, word := range strings.Fields(text) {
		if stopWords[word] {
			continue
		}
		kept = append(kept, word)
	}
	return strings.Join(kept, " ")
}

// Fingerprint returns the SHA-256 hex digest of the normalized text.
// Two texts with the same fingerprint are duplicates by definition.
func Fingerprint(text string) string {
	sum := sha256.Sum256([]byte(Normalize(text)))
	return hex.EncodeToString(sum[:])
}

// Preview truncates normalized text for index entries.
func Preview(text string) string {
	n := Normalize(text)
	if len(n) > previewLen {
		return n[:truncAt(n, previewLen)] + "..."
	}
	return n
}

const previewLen = 100

// truncAt backs a byte offset up to the nearest rune boundary so
// truncation never splits a multibyte character.
func truncAt(s string, i int) int {
	for i > 0 && i < len(s) && !utf8.RuneStart(s[i]) {
		i--
	}
	return i
}
