package util

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	reDose           = regexp.MustCompile(`(?i)(\d{1,3}(?:,\d{3})+|\d+(?:[.,]\d+)?)\s*(mcg|µg|ug|mg|g|ml|mL|units?|iu|meq|tabs?|tablets?|caps?|capsules?|puffs?|drops?)\b`)
	reDoseNumber     = regexp.MustCompile(`(\d{1,3}(?:,\d{3})+|\d+(?:[.,]\d+)?)`)
	reThousandsComma = regexp.MustCompile(`^\d{1,3}(?:,\d{3})+$`)
)

// ParsedDose is the leading amount of a dosage string such as "500 mg" or
// "1,000 units".
type ParsedDose struct {
	Amount *float64
	Unit   *string
	Raw    *string
}

func ParseDose(input string) ParsedDose {
	line := strings.ReplaceAll(input, " ", " ")

	raw := ""
	token := ""
	unit := ""
	if m := reDose.FindStringSubmatch(line); len(m) > 2 {
		raw = strings.TrimSpace(m[0])
		token = m[1]
		unit = normalizeUnit(m[2])
	} else if m := reDoseNumber.FindStringSubmatch(line); len(m) > 1 {
		raw = m[1]
		token = m[1]
	}

	var amount *float64
	if token != "" {
		if parsed, err := strconv.ParseFloat(normalizeNumericToken(token), 64); err == nil {
			amount = FloatPtr(parsed)
		}
	}

	var unitPtr *string
	if unit != "" {
		unitPtr = StringPtr(unit)
	}
	var rawPtr *string
	if raw != "" {
		rawPtr = StringPtr(raw)
	}
	return ParsedDose{Amount: amount, Unit: unitPtr, Raw: rawPtr}
}

// SameDose reports whether two dosage strings parse to the same amount and
// unit. Unparseable dosages compare by their trimmed lower-cased text.
func SameDose(a, b string) bool {
	pa, pb := ParseDose(a), ParseDose(b)
	if pa.Amount == nil || pb.Amount == nil {
		return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
	}
	if *pa.Amount != *pb.Amount {
		return false
	}
	return deref(pa.Unit) == deref(pb.Unit)
}

func normalizeUnit(unit string) string {
	u := strings.ToLower(strings.TrimSpace(unit))
	switch u {
	case "µg", "ug":
		return "mcg"
	case "unit", "units", "iu":
		return "units"
	case "tab", "tabs", "tablet", "tablets":
		return "tab"
	case "cap", "caps", "capsule", "capsules":
		return "cap"
	case "puff", "puffs":
		return "puff"
	case "drop", "drops":
		return "drop"
	default:
		return u
	}
}

func normalizeNumericToken(token string) string {
	compact := strings.ReplaceAll(token, " ", "")
	if reThousandsComma.MatchString(compact) {
		return strings.ReplaceAll(compact, ",", "")
	}
	if strings.Contains(compact, ",") && !strings.Contains(compact, ".") {
		return strings.ReplaceAll(compact, ",", ".")
	}
	return compact
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
