package plate

import (
	"regexp"
	"strings"

	"oddeven-service/internal/domain/capture"
)

// The national plate grammar: one or two region letters, up to four digits,
// up to three suffix letters.
var grammar = regexp.MustCompile(`^[A-Z]{1,2}[0-9]{1,4}[A-Z]{0,3}$`)

var stripNonAlnum = regexp.MustCompile(`[^A-Za-z0-9]+`)

// Substitutions the OCR engine is known to make, applied only inside the
// segment that expects the target class. Letter positions may recover from
// a misread digit and digit positions from a misread letter, never the
// other way around within the same position.
var toLetter = map[byte]byte{
	'0': 'O',
	'1': 'I',
	'2': 'Z',
	'5': 'S',
	'6': 'G',
	'8': 'B',
}

var toDigit = map[byte]byte{
	'B': '8',
	'D': '0',
	'G': '6',
	'I': '1',
	'L': '1',
	'O': '0',
	'Q': '0',
	'S': '5',
	'Z': '2',
}

// Normalize cleans raw OCR text into a canonical plate. It never fails:
// text that cannot be coerced into the grammar comes back as an invalid
// Plate carrying the original raw text.
func Normalize(raw string) capture.Plate {
	cleaned := strings.ToUpper(stripNonAlnum.ReplaceAllString(raw, ""))
	if cleaned == "" {
		return capture.Plate{RawText: raw}
	}

	if grammar.MatchString(cleaned) {
		return capture.Plate{Text: cleaned, RawText: raw, Valid: true}
	}

	best, cost, ambiguous := bestInterpretation(cleaned)
	if best == "" {
		return capture.Plate{RawText: raw}
	}
	return capture.Plate{
		Text:          best,
		RawText:       raw,
		Valid:         true,
		Substitutions: cost,
		Ambiguous:     ambiguous,
	}
}

// bestInterpretation tries every way of splitting the cleaned text into
// letters+digits+letters segments and coercing each character into its
// segment's class. It keeps the interpretation needing the fewest
// substitutions. When two distinct canonical results tie on cost the
// lexicographically smaller one wins and the result is flagged ambiguous.
func bestInterpretation(cleaned string) (string, int, bool) {
	n := len(cleaned)
	best := ""
	bestCost := -1
	ambiguous := false

	for prefix := 1; prefix <= 2 && prefix < n; prefix++ {
		for digits := 1; digits <= 4 && prefix+digits <= n; digits++ {
			suffix := n - prefix - digits
			if suffix > 3 {
				continue
			}
			candidate, cost, ok := coerce(cleaned, prefix, digits)
			if !ok {
				continue
			}
			switch {
			case bestCost < 0 || cost < bestCost:
				best, bestCost, ambiguous = candidate, cost, false
			case cost == bestCost && candidate != best:
				ambiguous = true
				if candidate < best {
					best = candidate
				}
			}
		}
	}

	return best, bestCost, ambiguous
}

func coerce(s string, prefix, digits int) (string, int, bool) {
	out := []byte(s)
	cost := 0
	for i := range out {
		c := out[i]
		wantLetter := i < prefix || i >= prefix+digits
		if wantLetter {
			if c >= 'A' && c <= 'Z' {
				continue
			}
			sub, ok := toLetter[c]
			if !ok {
				return "", 0, false
			}
			out[i] = sub
			cost++
		} else {
			if c >= '0' && c <= '9' {
				continue
			}
			sub, ok := toDigit[c]
			if !ok {
				return "", 0, false
			}
			out[i] = sub
			cost++
		}
	}
	return string(out), cost, true
}
