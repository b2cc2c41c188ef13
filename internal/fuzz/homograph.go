package fuzz

import (
	"golang.org/x/net/idna"
)

// confusables maps ASCII letters/digits to visually-similar code points
// (mostly Cyrillic, plus Latin alpha and dotless i; 'o' also lists ASCII
// '0', and '1' maps to ASCII 'l' and 'I'), ported from enhanced_detection.py's
// IDNHomographDetector.CONFUSABLES table. Per spec §9's open question this
// table is fluid upstream and is carried here as versioned data.
var confusables = map[byte][]rune{
	'a': {'а', 'ɑ'}, // Cyrillic а, Latin alpha
	'c': {'с'},      // Cyrillic с
	'e': {'е'},      // Cyrillic е
	'i': {'і', 'ı'}, // Cyrillic і, dotless i
	'o': {'о', '0'}, // Cyrillic о
	'p': {'р'},      // Cyrillic р
	's': {'ѕ'},      // Cyrillic ѕ
	'x': {'х'},      // Cyrillic х
	'y': {'у'},      // Cyrillic у
	'0': {'О'},      // Cyrillic О (uppercase, visually 0)
	'1': {'l', 'I'},
}

const maxHomographSubstitutions = 3
const maxHomographVariants = 50

// idnHomographs implements spec §4.1.4: substitute up to
// maxHomographSubstitutions positions with confusable code points, emit the
// punycode form, capped at maxHomographVariants per spec's "capped at 50
// variations" reference behavior in the original.
func idnHomographs(label, tld string) []Candidate {
	var positions []int
	for i := 0; i < len(label); i++ {
		if _, ok := confusables[label[i]]; ok {
			positions = append(positions, i)
		}
	}
	if len(positions) == 0 {
		return nil
	}

	var out []Candidate
	seen := make(map[string]bool)

	var substitute func(combo []int, depth int)
	substitute = func(combo []int, depth int) {
		if len(out) >= maxHomographVariants {
			return
		}
		if depth > 0 {
			variant := string(applySet(label, combo))
			ascii, err := idna.ToASCII(variant + "." + tld)
			if err == nil && !seen[ascii] {
				seen[ascii] = true
				out = append(out, Candidate{Domain: ascii, Fuzzer: "idn-homograph"})
			}
		}
		if depth >= maxHomographSubstitutions || len(out) >= maxHomographVariants {
			return
		}
		for _, p := range positions {
			already := false
			for _, c := range combo {
				if c == p {
					already = true
					break
				}
			}
			if already {
				continue
			}
			substitute(append(combo, p), depth+1)
		}
	}
	substitute(nil, 0)
	return out
}

// applySet returns a copy of label's runes with each position in combo
// replaced by its first confusable substitute.
func applySet(label string, combo []int) []rune {
	runes := []rune(label)
	for _, p := range combo {
		subs := confusables[label[p]]
		if len(subs) > 0 {
			runes[p] = subs[0]
		}
	}
	return runes
}
