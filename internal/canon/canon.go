package canon

import "strings"

// Canonicalize reduces cql to its canonical form: the values of all
// non-comment, non-whitespace tokens, joined by a single ASCII space, in
// scan order. No case folding, no string-literal normalization, no
// numeric normalization is performed.
func Canonicalize(cql string) (string, error) {
	tokens, err := Tokenize(cql)
	if err != nil {
		return "", err
	}

	parts := make([]string, 0, len(tokens))
	for _, tok := range tokens {
		if tok.Kind == KindComment || tok.Kind == KindWhitespace {
			continue
		}
		parts = append(parts, tok.Value)
	}

	return strings.Join(parts, " "), nil
}
