package structure

import (
	"unicode"

	"golang.org/x/text/unicode/bidi"
)

// Direction is the dominant writing direction of a piece of text.
type Direction int

const (
	DirectionNeutral Direction = iota
	DirectionLTR
	DirectionRTL
)

// String returns "LTR", "RTL", or "Neutral".
func (d Direction) String() string {
	switch d {
	case DirectionLTR:
		return "LTR"
	case DirectionRTL:
		return "RTL"
	default:
		return "Neutral"
	}
}

// DetectDirection returns the dominant direction of text, counting strong
// directional characters per their Unicode bidi class. Digits and European
// numbers are treated as neutral so that an amount inside a Hebrew sentence
// does not flip the line.
func DetectDirection(text string) Direction {
	ltr, rtl := 0, 0
	for _, r := range text {
		switch charClass(r) {
		case bidi.L:
			ltr++
		case bidi.R, bidi.AL:
			rtl++
		}
	}
	if ltr == 0 && rtl == 0 {
		return DirectionNeutral
	}
	if rtl > ltr {
		return DirectionRTL
	}
	return DirectionLTR
}

// charClass returns the bidi class of a single rune.
func charClass(r rune) bidi.Class {
	props, _ := bidi.LookupRune(r)
	return props.Class()
}

// isEmbeddedLTR reports whether text is the kind of run that keeps its
// internal left-to-right order inside an RTL line: Latin tokens, numbers,
// or mixtures of the two with neutral punctuation.
func isEmbeddedLTR(text string) bool {
	sawStrong := false
	for _, r := range text {
		switch charClass(r) {
		case bidi.R, bidi.AL:
			return false
		case bidi.L, bidi.EN, bidi.AN:
			sawStrong = true
		}
	}
	return sawStrong
}

// hebrewLetterRatio returns the fraction of letters in text that belong to
// the Hebrew script. Lines dominated by other scripts are candidates for the
// untranslated exclusion heuristic.
func hebrewLetterRatio(text string) (ratio float64, letters int) {
	hebrew := 0
	for _, r := range text {
		if !unicode.IsLetter(r) {
			continue
		}
		letters++
		if unicode.Is(unicode.Hebrew, r) {
			hebrew++
		}
	}
	if letters == 0 {
		return 1.0, 0
	}
	return float64(hebrew) / float64(letters), letters
}
