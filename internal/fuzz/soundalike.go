package fuzz

import "strings"

// soundexGroups maps each consonant to its Soundex digit group, mirroring
// enhanced_detection.py's SoundAlikeDetector encoding table.
var soundexGroups = map[byte]byte{
	'b': '1', 'f': '1', 'p': '1', 'v': '1',
	'c': '2', 'g': '2', 'j': '2', 'k': '2', 'q': '2', 's': '2', 'x': '2', 'z': '2',
	'd': '3', 't': '3',
	'l': '4',
	'm': '5', 'n': '5',
	'r': '6',
}

// soundex returns the 4-character Soundex code for s (American Soundex:
// keep the first letter, map subsequent consonants to digit groups,
// collapse adjacent duplicates, drop vowels/h/w/y, pad/truncate to 4).
func soundex(s string) string {
	if s == "" {
		return ""
	}
	s = strings.ToLower(s)
	code := []byte{s[0]}

	lastGroup := soundexGroups[s[0]]
	for i := 1; i < len(s); i++ {
		c := s[i]
		if !(c >= 'a' && c <= 'z') {
			continue
		}
		// h and w do not separate same-coded consonants in American Soundex.
		if c == 'h' || c == 'w' {
			continue
		}
		g, isConsonant := soundexGroups[c]
		if !isConsonant {
			lastGroup = 0
			continue
		}
		if g != lastGroup {
			code = append(code, g)
		}
		lastGroup = g
		if len(code) == 4 {
			break
		}
	}
	for len(code) < 4 {
		code = append(code, '0')
	}
	return string(code[:4])
}

// metaphoneLite is a simplified Metaphone: a fixed chain of digraph
// substitutions followed by vowel-stripping (after the first letter),
// matching the "simplified regex-transform-chain" style of
// enhanced_detection.py's metaphone() rather than full double-Metaphone.
func metaphoneLite(s string) string {
	s = strings.ToLower(s)
	replacer := strings.NewReplacer(
		"ph", "f", "th", "0", "ck", "k", "sh", "x", "ch", "x",
		"wh", "w", "qu", "kw", "gh", "g",
	)
	s = replacer.Replace(s)
	if s == "" {
		return ""
	}
	var b strings.Builder
	b.WriteByte(s[0])
	for i := 1; i < len(s); i++ {
		c := s[i]
		if strings.IndexByte(vowels, c) >= 0 {
			continue
		}
		b.WriteByte(c)
	}
	return b.String()
}

// soundAlikes implements spec §4.1.3: every edit-distance-1 ASCII string
// over the label sharing its Soundex or simplified-Metaphone code.
func soundAlikes(label, tld string) []Candidate {
	targetSoundex := soundex(label)
	targetMetaphone := metaphoneLite(label)

	seen := make(map[string]bool)
	var out []Candidate
	emit := func(candidateLabel string) {
		if candidateLabel == label || seen[candidateLabel] {
			return
		}
		seen[candidateLabel] = true
		if soundex(candidateLabel) == targetSoundex || metaphoneLite(candidateLabel) == targetMetaphone {
			out = append(out, Candidate{Domain: candidateLabel + "." + tld, Fuzzer: "soundalike"})
		}
	}

	const letters = "abcdefghijklmnopqrstuvwxyz"
	// Substitution.
	for i := range label {
		for _, c := range letters {
			emit(label[:i] + string(c) + label[i+1:])
		}
	}
	// Insertion.
	for i := 0; i <= len(label); i++ {
		for _, c := range letters {
			emit(label[:i] + string(c) + label[i:])
		}
	}
	// Deletion.
	for i := range label {
		emit(label[:i] + label[i+1:])
	}
	// Transposition.
	for i := 0; i+1 < len(label); i++ {
		b := []byte(label)
		b[i], b[i+1] = b[i+1], b[i]
		emit(string(b))
	}

	return out
}
