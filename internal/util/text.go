package util

import (
	"regexp"
	"strings"
)

var reNonLetters = regexp.MustCompile(`[^a-z]`)

// NormalizeMedicationName lower-cases a drug name and drops everything that
// is not a letter, so "Metoprolol-Tartrate 25" and "metoprolol tartrate"
// collide.
func NormalizeMedicationName(name string) string {
	return reNonLetters.ReplaceAllString(strings.ToLower(name), "")
}

var medicationClasses = map[string]string{
	"azithromycin":   "Macrolide antibiotic",
	"guaifenesin":    "Expectorant",
	"metoprolol":     "Beta blocker",
	"apixaban":       "Factor Xa inhibitor",
	"lisinopril":     "ACE inhibitor",
	"ondansetron":    "Antiemetic",
	"vancomycin":     "Glycopeptide antibiotic",
	"atorvastatin":   "Statin",
	"ibuprofen":      "NSAID",
	"metformin":      "Biguanide",
	"empagliflozin":  "SGLT2 inhibitor",
	"spironolactone": "Aldosterone antagonist",
	"furosemide":     "Loop diuretic",
}

// MedicationClass returns the therapeutic class of a drug. An exact match on
// the normalized name wins, then a salt-suffixed name ("metoprololtartrate"),
// then the closest spelling with a Dice score of at least 0.85.
func MedicationClass(name string) (string, bool) {
	normalized := NormalizeMedicationName(name)
	if normalized == "" {
		return "", false
	}
	if class, ok := medicationClasses[normalized]; ok {
		return class, true
	}

	bestKey := ""
	for key := range medicationClasses {
		if strings.HasPrefix(normalized, key) && len(key) > len(bestKey) {
			bestKey = key
		}
	}
	if bestKey != "" {
		return medicationClasses[bestKey], true
	}

	bestScore := 0.0
	for key := range medicationClasses {
		score := DiceCoefficient(normalized, key)
		if score > bestScore || (score == bestScore && key < bestKey) {
			bestScore = score
			bestKey = key
		}
	}
	if bestScore >= 0.85 {
		return medicationClasses[bestKey], true
	}
	return "", false
}

func DiceCoefficient(a, b string) float64 {
	if a == "" || b == "" {
		return 0
	}
	if a == b {
		return 1
	}

	pairs := func(s string) []string {
		r := []rune(s)
		if len(r) < 2 {
			return nil
		}
		out := make([]string, 0, len(r)-1)
		for i := 0; i < len(r)-1; i++ {
			out = append(out, string(r[i:i+2]))
		}
		return out
	}

	aPairs := pairs(a)
	bPairs := pairs(b)
	if len(aPairs) == 0 || len(bPairs) == 0 {
		return 0
	}

	bCount := map[string]int{}
	for _, p := range bPairs {
		bCount[p]++
	}
	inter := 0
	for _, p := range aPairs {
		if bCount[p] > 0 {
			inter++
			bCount[p]--
		}
	}

	return float64(2*inter) / float64(len(aPairs)+len(bPairs))
}

func StringPtr(v string) *string {
	return &v
}

func FloatPtr(v float64) *float64 {
	return &v
}
