package normalize

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/kljensen/snowball/english"
	"golang.org/x/text/unicode/norm"
)

// Literal tokens substituted for collapsed content.
const (
	LinkToken   = "link"
	NumberToken = "number"
)

var (
	urlPattern    = regexp.MustCompile(`http\S+|www\S+`)
	numberPattern = regexp.MustCompile(`[0-9]+`)
)

// TextStage rewrites the whole text before tokenization.
type TextStage struct {
	Name  string
	Apply func(string) string
}

// TokenStage rewrites the token list after tokenization.
type TokenStage struct {
	Name  string
	Apply func([]string) []string
}

// FoldCompatibility maps compatibility characters (fullwidth forms,
// ligatures, circled digits) to their canonical equivalents.
func FoldCompatibility(text string) string {
	return norm.NFKC.String(text)
}

// Lowercase lowercases every rune.
func Lowercase(text string) string {
	return strings.ToLower(text)
}

// ReplaceURLs collapses every URL-like run into the link token.
func ReplaceURLs(text string) string {
	return urlPattern.ReplaceAllLiteralString(text, " "+LinkToken+" ")
}

// ReplaceNumbers collapses every run of ASCII digits into the number token.
func ReplaceNumbers(text string) string {
	return numberPattern.ReplaceAllLiteralString(text, " "+NumberToken+" ")
}

// StripSymbols keeps ASCII letters, ASCII digits and whitespace.
// Every other rune, including non-ASCII letters, is removed without a
// replacement space.
func StripSymbols(text string) string {
	return strings.Map(func(r rune) rune {
		if isASCIIWord(r) || unicode.IsSpace(r) {
			return r
		}
		return -1
	}, text)
}

func isASCIIWord(r rune) bool {
	return r >= 'a' && r <= 'z' ||
		r >= 'A' && r <= 'Z' ||
		r >= '0' && r <= '9'
}

// DropStopwords returns a token stage removing every token in set.
func DropStopwords(name string, set StopwordSet) TokenStage {
	return TokenStage{
		Name: name,
		Apply: func(tokens []string) []string {
			kept := tokens[:0:0]
			for _, tok := range tokens {
				if !set.Contains(tok) {
					kept = append(kept, tok)
				}
			}
			return kept
		},
	}
}

// StemTokens reduces every token to its Porter2 stem.
func StemTokens(tokens []string) []string {
	stems := make([]string, 0, len(tokens))
	for _, tok := range tokens {
		if s := english.Stem(tok, true); s != "" {
			stems = append(stems, s)
		}
	}
	return stems
}
