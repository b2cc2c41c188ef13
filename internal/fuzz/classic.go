package fuzz

import "strings"

const alphabet = "abcdefghijklmnopqrstuvwxyz0123456789-"

// qwertyAdjacent maps each letter to its physically-adjacent keys on a
// QWERTY keyboard, used by the replacement fuzzer (fat-finger typos are
// the dominant real-world typosquat source for single-substitution edits).
var qwertyAdjacent = map[byte]string{
	'a': "qwsz", 'b': "vghn", 'c': "xdfv", 'd': "serfcx", 'e': "wsdr",
	'f': "rtgdcv", 'g': "tyhbvf", 'h': "yujnbg", 'i': "ujko", 'j': "uikmnh",
	'k': "iolmj", 'l': "kop", 'm': "njk", 'n': "bhjm", 'o': "iklp",
	'p': "ol", 'q': "wa", 'r': "edft", 's': "awedxz", 't': "rfgy",
	'u': "yhji", 'v': "cfgb", 'w': "qase", 'x': "zsdc", 'y': "tghu",
	'z': "asx",
}

var vowels = "aeiou"

// asciiHomoglyphs maps short visually-similar substrings onto each other
// (classic, always-on homoglyph fuzzer — distinct from the optional,
// Unicode-based idn-homograph fuzzer in homograph.go).
var asciiHomoglyphs = map[string][]string{
	"rn": {"m"}, "m": {"rn"}, "vv": {"w"}, "w": {"vv"},
	"cl": {"d"}, "d": {"cl"}, "l": {"1", "i"}, "1": {"l"}, "i": {"l", "1"},
	"0": {"o"}, "o": {"0"}, "b": {"lb", "ib"},
}

var popularTLDs = []string{
	"com", "net", "org", "info", "biz", "io", "co", "us", "uk", "de",
	"cn", "jp", "fr", "au", "ru", "ch", "it", "nl", "se", "no",
	"es", "mil", "gov", "edu", "online", "site", "xyz", "top", "club", "shop",
	"store", "app", "dev", "me", "tv", "cc", "name", "pro", "live", "vip",
	"icu", "work", "life", "world", "group", "team", "cloud", "email", "link", "click",
}

// classicFuzzers runs every always-on fuzzer (spec §4.1.1) over label+tld
// and returns their raw, possibly-overlapping output; Generate handles
// dedup and the legality filter.
func classicFuzzers(label, tld string) []Candidate {
	var out []Candidate
	join := func(l string) string { return l + "." + tld }

	// addition: insert one character at every position.
	for i := 0; i <= len(label); i++ {
		for _, c := range alphabet {
			out = append(out, Candidate{Domain: join(label[:i] + string(c) + label[i:]), Fuzzer: "addition"})
		}
	}

	// omission: remove one character.
	for i := range label {
		out = append(out, Candidate{Domain: join(label[:i] + label[i+1:]), Fuzzer: "omission"})
	}

	// repetition: duplicate one character.
	for i := range label {
		out = append(out, Candidate{Domain: join(label[:i+1] + string(label[i]) + label[i+1:]), Fuzzer: "repetition"})
	}

	// replacement: swap one character for a keyboard-adjacent key.
	for i, c := range []byte(label) {
		for _, r := range qwertyAdjacent[c] {
			out = append(out, Candidate{Domain: join(label[:i] + string(r) + label[i+1:]), Fuzzer: "replacement"})
		}
	}

	// transposition: swap two adjacent characters.
	for i := 0; i+1 < len(label); i++ {
		b := []byte(label)
		b[i], b[i+1] = b[i+1], b[i]
		out = append(out, Candidate{Domain: join(string(b)), Fuzzer: "transposition"})
	}

	// hyphenation: insert a hyphen between every pair of characters.
	for i := 1; i < len(label); i++ {
		if label[i-1] == '-' || label[i] == '-' {
			continue
		}
		out = append(out, Candidate{Domain: join(label[:i] + "-" + label[i:]), Fuzzer: "hyphenation"})
	}

	// vowel-swap: replace each vowel with every other vowel.
	for i, c := range []byte(label) {
		if strings.IndexByte(vowels, c) < 0 {
			continue
		}
		for _, v := range vowels {
			if byte(v) == c {
				continue
			}
			out = append(out, Candidate{Domain: join(label[:i] + string(v) + label[i+1:]), Fuzzer: "vowel-swap"})
		}
	}

	// bitsquat: flip one bit in one byte of the label, keeping the result
	// within the DNS label charset (grounded on
	// other_examples/Issif-cercat__bitsquatting.go).
	masks := []byte{1, 2, 4, 8, 16, 32, 64, 128}
	for i := 0; i < len(label); i++ {
		for _, m := range masks {
			flipped := label[i] ^ m
			if !(flipped >= '0' && flipped <= '9') && !(flipped >= 'a' && flipped <= 'z') && flipped != '-' {
				continue
			}
			out = append(out, Candidate{Domain: join(label[:i] + string(flipped) + label[i+1:]), Fuzzer: "bitsquat"})
		}
	}

	// homoglyph: substitute visually-similar ASCII substrings.
	for substr, replacements := range asciiHomoglyphs {
		idx := 0
		for {
			pos := strings.Index(label[idx:], substr)
			if pos < 0 {
				break
			}
			pos += idx
			for _, repl := range replacements {
				out = append(out, Candidate{
					Domain: join(label[:pos] + repl + label[pos+len(substr):]),
					Fuzzer: "homoglyph",
				})
			}
			idx = pos + 1
			if idx >= len(label) {
				break
			}
		}
	}

	// tld-swap: replace the TLD against the popularity list.
	for _, t := range popularTLDs {
		if t == tld {
			continue
		}
		out = append(out, Candidate{Domain: label + "." + t, Fuzzer: "tld-swap"})
	}

	// subdomain: insert a dot inside the label, turning a registrable
	// domain into a look-alike subdomain structure (e.g. example.com ->
	// ex.ample.com).
	for i := 1; i < len(label); i++ {
		out = append(out, Candidate{Domain: join(label[:i] + "." + label[i:]), Fuzzer: "subdomain"})
	}

	return out
}
