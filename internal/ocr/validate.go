package ocr

import (
	"regexp"
	"strconv"
	"strings"
)

// Patterns tuned for meter and fuel-pump tickets. Amounts accept both comma
// and dot decimal separators.
var (
	amountPattern = regexp.MustCompile(`(?i)(?:total|importe|€|eur)\s*[:.]?\s*(\d+[.,]\d{2})`)
	numberPattern = regexp.MustCompile(`\d{1,3}[.,]\d{2}`)
	datePattern   = regexp.MustCompile(`\d{1,2}[/\-.]\d{1,2}[/\-.]\d{2,4}`)
	litersPattern = regexp.MustCompile(`(?i)(\d+[.,]\d{1,3})\s*(?:l|lt|litros?)`)
)

var fuelKeywords = []string{"diesel", "gasoil", "gasolina", "combustible", "carburante"}

// TicketCheck is the result of validating recognized ticket text.
type TicketCheck struct {
	Valid       bool
	AmountCents int64 // 0 when no amount was found
	Liters      float64
	Problems    []string
}

// ValidateMeterTicket checks recognized meter-ticket text for an amount and a
// date.
func ValidateMeterTicket(text string) TicketCheck {
	var check TicketCheck

	check.AmountCents = findAmountCents(text)
	if check.AmountCents == 0 {
		// Fall back to the last free-standing number, which on meter
		// tickets is usually the total.
		if all := numberPattern.FindAllString(text, -1); len(all) > 0 {
			check.AmountCents = parseCents(all[len(all)-1])
		}
	}
	if check.AmountCents == 0 {
		check.Problems = append(check.Problems, "no amount detected on ticket")
	}
	if !datePattern.MatchString(text) {
		check.Problems = append(check.Problems, "no date detected on ticket")
	}

	check.Valid = len(check.Problems) == 0
	return check
}

// ValidateFuelTicket checks recognized fuel-ticket text for an amount and
// evidence that the ticket is actually for fuel.
func ValidateFuelTicket(text string) TicketCheck {
	var check TicketCheck

	check.AmountCents = findAmountCents(text)
	if m := litersPattern.FindStringSubmatch(text); m != nil {
		check.Liters, _ = strconv.ParseFloat(strings.ReplaceAll(m[1], ",", "."), 64)
	}

	if check.AmountCents == 0 {
		check.Problems = append(check.Problems, "no amount detected on ticket")
	}
	if !hasFuelKeyword(text) && check.Liters == 0 {
		check.Problems = append(check.Problems, "text does not look like a fuel ticket")
	}

	check.Valid = len(check.Problems) == 0
	return check
}

func findAmountCents(text string) int64 {
	m := amountPattern.FindStringSubmatch(text)
	if m == nil {
		return 0
	}
	return parseCents(m[1])
}

func parseCents(s string) int64 {
	v, err := strconv.ParseFloat(strings.ReplaceAll(s, ",", "."), 64)
	if err != nil {
		return 0
	}
	return int64(v*100 + 0.5)
}

func hasFuelKeyword(text string) bool {
	lower := strings.ToLower(text)
	for _, kw := range fuelKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}
