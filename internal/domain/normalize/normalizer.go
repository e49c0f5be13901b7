// Package normalize turns raw email text into the stemmed token string the
// vectorizer was fitted on.
package normalize

import "strings"

// Normalizer applies text stages, splits on whitespace, then applies token
// stages and joins the survivors with single spaces. A Normalizer is
// immutable and safe for concurrent use.
type Normalizer struct {
	textStages  []TextStage
	tokenStages []TokenStage
}

// New creates a Normalizer running the given stages in order.
func New(textStages []TextStage, tokenStages []TokenStage) *Normalizer {
	return &Normalizer{
		textStages:  append([]TextStage(nil), textStages...),
		tokenStages: append([]TokenStage(nil), tokenStages...),
	}
}

// Default returns the canonical email normalizer.
//
// Stems are filtered against the stopword set a second time: a few
// inflections stem down to a stopword ("ons" becomes "on").
func Default() *Normalizer {
	stopwords := EnglishStopwords()
	return New(
		[]TextStage{
			{Name: "fold", Apply: FoldCompatibility},
			{Name: "lowercase", Apply: Lowercase},
			{Name: "urls", Apply: ReplaceURLs},
			{Name: "numbers", Apply: ReplaceNumbers},
			{Name: "symbols", Apply: StripSymbols},
		},
		[]TokenStage{
			DropStopwords("stopwords", stopwords),
			{Name: "stem", Apply: StemTokens},
			DropStopwords("stem-stopwords", stopwords),
		},
	)
}

// Normalize maps text to its normalized token string. It never fails; an
// empty or all-stopword input yields "".
func (n *Normalizer) Normalize(text string) string {
	return strings.Join(n.Tokens(text), " ")
}

// Tokens is Normalize without the final join.
func (n *Normalizer) Tokens(text string) []string {
	for _, stage := range n.textStages {
		text = stage.Apply(text)
	}
	tokens := strings.Fields(text)
	for _, stage := range n.tokenStages {
		if len(tokens) == 0 {
			break
		}
		tokens = stage.Apply(tokens)
	}
	return tokens
}

// Stages lists the stage names in execution order, with "split" marking
// tokenization.
func (n *Normalizer) Stages() []string {
	names := make([]string, 0, len(n.textStages)+len(n.tokenStages)+1)
	for _, s := range n.textStages {
		names = append(names, s.Name)
	}
	names = append(names, "split")
	for _, s := range n.tokenStages {
		names = append(names, s.Name)
	}
	return names
}
