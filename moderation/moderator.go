// Package moderation masks configured words in chat text before it is
// persisted, so the stored message and every broadcast copy agree.
package moderation

import (
	"unicode"

	"fanshub-chat/errors"

	goahocorasick "github.com/anknown/ahocorasick"
	"github.com/abadojack/whatlanggo"
)

type Moderator struct {
	matcher  *goahocorasick.Machine
	maskRune rune
}

// Result of one censor pass. Lang carries the ISO 639-1 code of the text
// when at least one span was masked, for the moderation audit log.
type Result struct {
	Text   string
	Masked bool
	Lang   string
}

// NewModerator builds the Aho-Corasick automaton over the lowercased,
// noise-stripped word list.
func NewModerator(words []string, maskRune rune) (Moderator, error) {
	if len(words) == 0 {
		return Moderator{}, errors.ErrEmptyWords
	}
	patterns := make([][]rune, len(words))
	for i, w := range words {
		norm, _ := normalize(w)
		patterns[i] = norm
	}
	m := new(goahocorasick.Machine)
	if err := m.Build(patterns); err != nil {
		return Moderator{}, err
	}
	return Moderator{matcher: m, maskRune: maskRune}, nil
}

// Censor masks every configured word in the input, matching across case,
// punctuation and spacing, while leaving unmatched characters untouched.
func (m *Moderator) Censor(original string) Result {
	norm, origIdx := normalize(original)
	if len(norm) == 0 {
		return Result{Text: original}
	}

	spans := m.matcher.MultiPatternSearch(norm, false)
	if len(spans) == 0 {
		return Result{Text: original}
	}

	origRunes := []rune(original)
	for _, span := range spans {
		start := span.Pos
		end := start + len(span.Word)
		if start < 0 || end > len(origIdx) {
			continue
		}
		for i := origIdx[start]; i <= origIdx[end-1]; i++ {
			origRunes[i] = m.maskRune
		}
	}

	info := whatlanggo.Detect(original)
	return Result{
		Text:   string(origRunes),
		Masked: true,
		Lang:   info.Lang.Iso6391(),
	}
}

// normalize lowercases the input and drops punctuation, spacing and symbols,
// keeping a mapping from each kept rune back to its original index so masked
// spans land on the right characters.
func normalize(input string) ([]rune, []int) {
	origRunes := []rune(input)
	norm := make([]rune, 0, len(origRunes))
	origIdx := make([]int, 0, len(origRunes))
	for i, r := range origRunes {
		if unicode.IsPunct(r) || unicode.IsSpace(r) || unicode.IsSymbol(r) {
			continue
		}
		norm = append(norm, unicode.ToLower(r))
		origIdx = append(origIdx, i)
	}
	return norm, origIdx
}
