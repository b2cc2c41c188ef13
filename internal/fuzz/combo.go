package fuzz

// comboKeywords is the fixed keyword list for the combo-squat fuzzer
// (spec §4.1.2), ported from enhanced_detection.py's ComboSquattingDetector
// COMMON_KEYWORDS. Per spec §9's open question this table is fluid
// upstream and is treated here as versioned data, not a synced resource.
var comboKeywords = []string{
	"login", "secure", "account", "verify", "update", "confirm", "support",
	"help", "service", "portal", "mail", "webmail", "admin", "manage",
	"auth", "signin", "signup", "register", "password", "reset", "recovery",
	"validation", "checkout", "payment", "billing", "invoice", "official",
	"app", "mobile", "online", "web", "ssl", "https", "safe", "protected",
	"customer", "client", "user", "member", "premium", "pro", "cloud",
	"server", "host", "vpn", "proxy", "cdn", "download", "upgrade",
	"install", "software", "security", "protection", "antivirus", "firewall",
	"defender", "shop", "store",
}

var comboSeparators = []string{"", "-", "_"}

// comboSquats implements spec §4.1.2: for each keyword and separator, emit
// label+sep+keyword and keyword+sep+label, plus digit-suffix variants —
// the digit-suffix form is the original's supplemental feature (see
// SPEC_FULL.md's supplemented-features list, item 4).
func comboSquats(label, tld string) []Candidate {
	var out []Candidate
	join := func(l string) string { return l + "." + tld }

	for _, kw := range comboKeywords {
		for _, sep := range comboSeparators {
			out = append(out, Candidate{Domain: join(label + sep + kw), Fuzzer: "combo"})
			out = append(out, Candidate{Domain: join(kw + sep + label), Fuzzer: "combo"})
		}
	}
	for d := 0; d <= 9; d++ {
		out = append(out, Candidate{Domain: join(label + string(rune('0'+d))), Fuzzer: "combo"})
	}
	return out
}
