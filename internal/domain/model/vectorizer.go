package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"regexp"
	"sort"
	"strings"
)

// DefaultTokenPattern selects tokens of two or more word characters.
const DefaultTokenPattern = `(?u)\b\w\w+\b`

// Supported norm values.
const (
	NormL1   = "l1"
	NormL2   = "l2"
	NormNone = ""
)

// VectorizerSpec is the serialized form of a fitted TF-IDF vectorizer.
type VectorizerSpec struct {
	Kind         string         `json:"kind"`
	Vocabulary   map[string]int `json:"vocabulary"`
	IDF          []float64      `json:"idf"`
	Norm         NormSetting    `json:"norm"`
	SublinearTF  bool           `json:"sublinear_tf"`
	Binary       bool           `json:"binary"`
	TokenPattern string         `json:"token_pattern"`
	NgramRange   []int          `json:"ngram_range"`
}

// NormSetting tells an absent norm (l2) apart from an explicit null (none).
type NormSetting struct {
	Value string
	Set   bool
}

// ExplicitNorm returns a NormSetting fixed to value.
func ExplicitNorm(value string) NormSetting {
	return NormSetting{Value: value, Set: true}
}

// UnmarshalJSON implements json.Unmarshaler.
func (n *NormSetting) UnmarshalJSON(data []byte) error {
	n.Set = true
	if string(data) == "null" {
		n.Value = NormNone
		return nil
	}
	return json.Unmarshal(data, &n.Value)
}

// Vectorizer maps normalized text to a fixed-dimension feature vector.
type Vectorizer interface {
	Kind() string
	Dim() int
	VocabularySize() int
	Transform(text string) FeatureVector
}

// TFIDFVectorizer maps normalized text onto a fixed vocabulary weighted by
// inverse document frequency. It is immutable once built.
type TFIDFVectorizer struct {
	vocabulary   map[string]int
	idf          []float64
	norm         string
	sublinearTF  bool
	binary       bool
	tokenPattern *regexp.Regexp
	ngramMin     int
	ngramMax     int
}

// NewTFIDFVectorizer validates spec and builds a vectorizer from it.
func NewTFIDFVectorizer(spec *VectorizerSpec) (*TFIDFVectorizer, error) {
	if spec == nil {
		return nil, errors.New("nil vectorizer spec")
	}
	if spec.Kind != "" && spec.Kind != KindTFIDF {
		return nil, fmt.Errorf("unsupported vectorizer kind %q", spec.Kind)
	}
	if len(spec.IDF) != len(spec.Vocabulary) {
		return nil, fmt.Errorf("idf has %d weights for a vocabulary of %d terms", len(spec.IDF), len(spec.Vocabulary))
	}

	seen := make([]bool, len(spec.IDF))
	for term, idx := range spec.Vocabulary {
		if idx < 0 || idx >= len(seen) {
			return nil, fmt.Errorf("term %q has index %d outside [0,%d)", term, idx, len(seen))
		}
		if seen[idx] {
			return nil, fmt.Errorf("index %d is assigned to more than one term", idx)
		}
		seen[idx] = true
	}
	for i, w := range spec.IDF {
		if math.IsNaN(w) || math.IsInf(w, 0) {
			return nil, fmt.Errorf("idf[%d] is not finite", i)
		}
	}

	norm := NormL2
	if spec.Norm.Set {
		norm = spec.Norm.Value
	}
	switch norm {
	case NormL1, NormL2, NormNone:
	default:
		return nil, fmt.Errorf("unsupported norm %q", norm)
	}

	pattern := spec.TokenPattern
	if pattern == "" {
		pattern = DefaultTokenPattern
	}
	re, err := compileTokenPattern(pattern)
	if err != nil {
		return nil, err
	}

	ngramMin, ngramMax := 1, 1
	if len(spec.NgramRange) != 0 {
		if len(spec.NgramRange) != 2 || spec.NgramRange[0] < 1 || spec.NgramRange[1] < spec.NgramRange[0] {
			return nil, fmt.Errorf("invalid ngram_range %v", spec.NgramRange)
		}
		ngramMin, ngramMax = spec.NgramRange[0], spec.NgramRange[1]
	}

	vocab := make(map[string]int, len(spec.Vocabulary))
	for term, idx := range spec.Vocabulary {
		vocab[term] = idx
	}

	return &TFIDFVectorizer{
		vocabulary:   vocab,
		idf:          append([]float64(nil), spec.IDF...),
		norm:         norm,
		sublinearTF:  spec.SublinearTF,
		binary:       spec.Binary,
		tokenPattern: re,
		ngramMin:     ngramMin,
		ngramMax:     ngramMax,
	}, nil
}

// compileTokenPattern accepts Python-flavoured patterns; RE2 has no (?u)
// flag and its \w and \b are ASCII, which matches normalized text.
func compileTokenPattern(pattern string) (*regexp.Regexp, error) {
	pattern = strings.TrimPrefix(pattern, "(?u)")
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("invalid token_pattern: %w", err)
	}
	if re.NumSubexp() > 1 {
		return nil, fmt.Errorf("token_pattern has %d capture groups, at most one is allowed", re.NumSubexp())
	}
	return re, nil
}

// Kind implements Vectorizer.
func (v *TFIDFVectorizer) Kind() string { return KindTFIDF }

// Dim returns the fixed feature dimensionality.
func (v *TFIDFVectorizer) Dim() int {
	return len(v.idf)
}

// VocabularySize returns the number of fitted terms.
func (v *TFIDFVectorizer) VocabularySize() int {
	return len(v.vocabulary)
}

// Analyze splits text into the terms looked up in the vocabulary.
func (v *TFIDFVectorizer) Analyze(text string) []string {
	var tokens []string
	if v.tokenPattern.NumSubexp() == 1 {
		for _, m := range v.tokenPattern.FindAllStringSubmatch(text, -1) {
			tokens = append(tokens, m[1])
		}
	} else {
		tokens = v.tokenPattern.FindAllString(text, -1)
	}

	if v.ngramMax == 1 {
		return tokens
	}

	var terms []string
	if v.ngramMin == 1 {
		terms = append(terms, tokens...)
	}
	for n := max(v.ngramMin, 2); n <= v.ngramMax; n++ {
		for i := 0; i+n <= len(tokens); i++ {
			terms = append(terms, strings.Join(tokens[i:i+n], " "))
		}
	}
	return terms
}

// Transform converts normalized text into a TF-IDF feature vector. Terms
// outside the vocabulary are ignored; empty text yields the zero vector.
func (v *TFIDFVectorizer) Transform(text string) FeatureVector {
	counts := make(map[int]float64)
	for _, term := range v.Analyze(text) {
		if idx, ok := v.vocabulary[term]; ok {
			counts[idx]++
		}
	}

	fv := FeatureVector{
		Dim:     v.Dim(),
		Indices: make([]int, 0, len(counts)),
		Values:  make([]float64, 0, len(counts)),
	}
	for idx := range counts {
		fv.Indices = append(fv.Indices, idx)
	}
	sort.Ints(fv.Indices)

	var l1, l2 float64
	for _, idx := range fv.Indices {
		tf := counts[idx]
		switch {
		case v.binary:
			tf = 1
		case v.sublinearTF:
			tf = 1 + math.Log(tf)
		}
		w := tf * v.idf[idx]
		fv.Values = append(fv.Values, w)
		l1 += math.Abs(w)
		l2 += w * w
	}

	var scale float64
	switch v.norm {
	case NormL1:
		scale = l1
	case NormL2:
		scale = math.Sqrt(l2)
	}
	if scale > 0 {
		for i := range fv.Values {
			fv.Values[i] /= scale
		}
	}

	return fv
}
