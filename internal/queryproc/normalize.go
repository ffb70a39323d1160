// Package queryproc implements the query normalizer: text cleanup,
// tokenization, light stemming, and fingerprint hashing.
package queryproc

import (
	"crypto/sha256"
	"encoding/hex"
	"regexp"
	"strings"

	"github.com/bmeyer99/docaiche/internal/apperr"
	"github.com/bmeyer99/docaiche/internal/model"
)

const (
	MinQueryLength = 2
	MaxQueryLength = 256
)

// permittedChars matches the character class allowed in a raw query:
// `[\w\s\-\.,:;!?()'/@#&]`.
var permittedChars = regexp.MustCompile(`^[\w\s\-.,:;!?()'/@#&]+$`)

var whitespace = regexp.MustCompile(`\s+`)

// Normalizer turns raw query text into a NormalizedQuery. It holds no
// mutable state and is safe for concurrent use.
type Normalizer struct{}

// New returns a ready-to-use Normalizer.
func New() *Normalizer {
	return &Normalizer{}
}

// Normalize validates and normalizes raw query text, producing a
// NormalizedQuery with a stable fingerprint. It returns a
// apperr.KindValidation error for malformed input.
func (n *Normalizer) Normalize(raw string, technologyHint string) (model.NormalizedQuery, error) {
	if len(raw) < MinQueryLength || len(raw) > MaxQueryLength {
		return model.NormalizedQuery{}, apperr.Validation("query length must be between 2 and 256 characters")
	}
	if !permittedChars.MatchString(raw) {
		return model.NormalizedQuery{}, apperr.Validation("query contains characters outside the permitted set")
	}

	cleaned := strings.TrimSpace(raw)
	cleaned = whitespace.ReplaceAllString(cleaned, " ")
	cleaned = strings.ToLower(cleaned)

	tokens := tokenize(cleaned)
	stemmedTokens := make([]string, len(tokens))
	for i, tok := range tokens {
		stemmedTokens[i] = stem(tok)
	}
	normalizedText := strings.Join(stemmedTokens, " ")

	return model.NormalizedQuery{
		OriginalText:   raw,
		NormalizedText: normalizedText,
		Fingerprint:    Fingerprint(normalizedText, technologyHint),
		TechnologyHint: technologyHint,
		Tokens:         stemmedTokens,
	}, nil
}

// Fingerprint computes the SHA-256 cache key over (normalizedText ‖
// technologyHint). Identical inputs always produce an identical
// fingerprint.
func Fingerprint(normalizedText, technologyHint string) string {
	sum := sha256.Sum256([]byte(normalizedText + "\x00" + technologyHint))
	return hex.EncodeToString(sum[:])
}

func tokenize(text string) []string {
	fields := strings.FieldsFunc(text, func(r rune) bool {
		switch r {
		case ' ', '\t', '\n', '.', ',', ':', ';', '!', '?', '(', ')', '\'', '/', '@', '#', '&', '-':
			return true
		}
		return false
	})
	tokens := make([]string, 0, len(fields))
	for _, f := range fields {
		if f != "" {
			tokens = append(tokens, f)
		}
	}
	return tokens
}

// suffixes lists the common English inflectional suffixes stripped by the
// light stemmer. Where one suffix ends another ("ies", "es", "s"), the
// longer one comes first, so "libraries" strips "ies" rather than "s";
// "running" strips "ing" to "runn".
var suffixes = []string{"ational", "tional", "ing", "edly", "ed", "ies", "es", "s"}

// stem applies a minimal suffix-stripping stemmer. It intentionally does not
// pull in a full Porter/Snowball implementation: the vector index (an
// external collaborator) owns semantic search quality, so this stemmer only
// needs to keep the cache fingerprint stable across trivial inflections.
// Stripping repeats until no rule applies, so a stemmed token stems to
// itself and normalizing already-normalized text changes nothing.
func stem(token string) string {
	for len(token) > 4 {
		stripped := token
		for _, suf := range suffixes {
			if strings.HasSuffix(token, suf) && len(token)-len(suf) >= 3 {
				stripped = token[:len(token)-len(suf)]
				break
			}
		}
		if stripped == token {
			break
		}
		token = stripped
	}
	return token
}
