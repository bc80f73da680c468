package names

import (
	"strings"
)

// nicknameTable maps common nickname tokens to a standard given name so that
// salary exports ("Billy Smith") and the stats provider ("William Smith")
// produce the same normalized string.
var nicknameTable = map[string]string{
	"bill":    "william",
	"billy":   "william",
	"will":    "william",
	"willie":  "william",
	"liam":    "william",
	"bob":     "robert",
	"bobby":   "robert",
	"rob":     "robert",
	"robbie":  "robert",
	"bert":    "robert",
	"rich":    "richard",
	"richie":  "richard",
	"rick":    "richard",
	"ricky":   "richard",
	"dick":    "richard",
	"jim":     "james",
	"jimmy":   "james",
	"jamie":   "james",
	"mike":    "michael",
	"mikey":   "michael",
	"mick":    "michael",
	"mickey":  "michael",
	"dave":    "david",
	"davey":   "david",
	"dan":     "daniel",
	"danny":   "daniel",
	"tom":     "thomas",
	"tommy":   "thomas",
	"chris":   "christopher",
	"topher":  "christopher",
	"matt":    "matthew",
	"matty":   "matthew",
	"tony":    "anthony",
	"andy":    "andrew",
	"drew":    "andrew",
	"joe":     "joseph",
	"joey":    "joseph",
	"ed":      "edward",
	"eddie":   "edward",
	"ted":     "edward",
	"teddy":   "edward",
	"ken":     "kenneth",
	"kenny":   "kenneth",
	"steve":   "stephen",
	"stevie":  "stephen",
	"nick":    "nicholas",
	"nicky":   "nicholas",
	"alex":    "alexander",
	"zach":    "zachary",
	"zack":    "zachary",
	"jake":    "jacob",
	"josh":    "joshua",
	"nate":    "nathan",
	"sam":     "samuel",
	"sammy":   "samuel",
	"charlie": "charles",
	"chuck":   "charles",
	"greg":    "gregory",
	"jeff":    "jeffrey",
	"vlad":    "vladimir",
	"vladdy":  "vladimir",
	"ronnie":  "ronald",
	"ron":     "ronald",
	"frank":   "francis",
	"frankie": "francis",
}

// generationalSuffixes are dropped as whole trailing tokens.
var generationalSuffixes = map[string]bool{
	"jr":  true,
	"sr":  true,
	"ii":  true,
	"iii": true,
	"iv":  true,
}

// punctuationReplacer strips the punctuation classes that appear in player
// names across feeds.
var punctuationReplacer = strings.NewReplacer(
	".", "",
	",", "",
	"-", " ",
	"'", "",
	"(", "",
	")", "",
)

// Normalize canonicalizes a free-text player name into a comparable form.
// It is deterministic and total: malformed input yields an empty string,
// never an error. Two raw names that denote the same person under common
// real-world variation (nickname, generational suffix, "Last, First" order,
// punctuation) normalize to the identical string.
func Normalize(raw string) string {
	s := strings.ToLower(strings.TrimSpace(raw))
	if s == "" {
		return ""
	}

	// "Last, First" -> "First Last"
	if idx := strings.Index(s, ","); idx >= 0 {
		last := strings.TrimSpace(s[:idx])
		first := strings.TrimSpace(s[idx+1:])
		s = first + " " + last
	}

	s = punctuationReplacer.Replace(s)

	tokens := strings.Fields(s)

	// Strip trailing generational suffixes (possibly stacked, e.g. "jr iii").
	for len(tokens) > 1 && generationalSuffixes[tokens[len(tokens)-1]] {
		tokens = tokens[:len(tokens)-1]
	}

	// Canonicalize nickname tokens.
	for i, tok := range tokens {
		if standard, ok := nicknameTable[tok]; ok {
			tokens[i] = standard
		}
	}

	return strings.Join(tokens, " ")
}
