package core

// transform.go is the field transform library: total, idempotent
// string -> string normalizers applied to single cell values. Each function
// is safe to run repeatedly; validation always judges the transformed value.

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var (
	generalDisallowed = regexp.MustCompile(`[^a-zA-Z0-9\s\-.,]`)
	nameDisallowed    = regexp.MustCompile(`[^a-zA-Z\s-]`)
	motherDisallowed  = regexp.MustCompile(`[^a-zA-Z\s\-']`)
	multiSpace        = regexp.MustCompile(`\s{2,}`)
	anySpace          = regexp.MustCompile(`\s+`)
	nonDigit          = regexp.MustCompile(`\D`)
	parenthetical     = regexp.MustCompile(`\(.*?\)`)
)

// diacriticFolder decomposes accented letters and drops the combining
// marks, so Ñ becomes N and é becomes e before character filtering.
var diacriticFolder = transform.Chain(
	norm.NFD,
	runes.Remove(runes.In(unicode.Mn)),
	norm.NFC,
)

// foldDiacritics strips accents from letters, leaving ASCII untouched.
func foldDiacritics(s string) string {
	out, _, err := transform.String(diacriticFolder, s)
	if err != nil {
		return s
	}
	return out
}

// placeholderTokens are middle-name / maiden-name values that mean "none".
var placeholderTokens = map[string]bool{
	"n/a":            true,
	"na":             true,
	"not applicable": true,
	"":               true,
}

// CleanGeneralText folds diacritics, strips everything outside letters,
// digits, spaces, hyphens, periods and commas, collapses space runs and
// trims. With preserveMultipleSpaces false, all whitespace runs collapse.
func CleanGeneralText(value string, preserveMultipleSpaces bool) string {
	if value == "" {
		return value
	}
	cleaned := generalDisallowed.ReplaceAllString(foldDiacritics(value), "")
	if preserveMultipleSpaces {
		cleaned = multiSpace.ReplaceAllString(cleaned, " ")
	} else {
		cleaned = anySpace.ReplaceAllString(cleaned, " ")
	}
	return strings.TrimSpace(cleaned)
}

// CleanNameText restricts a person-name field to letters, spaces and
// hyphens, collapsing repeated spaces.
func CleanNameText(value string) string {
	if value == "" {
		return value
	}
	cleaned := nameDisallowed.ReplaceAllString(foldDiacritics(value), "")
	cleaned = multiSpace.ReplaceAllString(cleaned, " ")
	return strings.TrimSpace(cleaned)
}

// CleanMiddleName cleans like a name and maps "n/a"-style placeholders to
// the empty string.
func CleanMiddleName(value string) string {
	cleaned := CleanNameText(value)
	if placeholderTokens[strings.ToLower(cleaned)] {
		return ""
	}
	return cleaned
}

// CleanExtensionName removes periods and all whitespace and upper-cases,
// so "Jr." and "JR" normalize to the same token.
func CleanExtensionName(value string) string {
	cleaned := strings.ReplaceAll(value, ".", "")
	cleaned = anySpace.ReplaceAllString(cleaned, "")
	return strings.ToUpper(cleaned)
}

// CleanMotherMaidenName allows letters, spaces, hyphens and apostrophes,
// collapses space runs, and maps placeholder tokens to empty.
func CleanMotherMaidenName(value string) string {
	if value == "" {
		return ""
	}
	cleaned := motherDisallowed.ReplaceAllString(foldDiacritics(value), "")
	cleaned = multiSpace.ReplaceAllString(cleaned, " ")
	cleaned = strings.TrimSpace(cleaned)
	if placeholderTokens[strings.ToLower(cleaned)] {
		return ""
	}
	return cleaned
}

// FormatMobile strips non-digits and drops the leading zero from
// 11-digit numbers, yielding the 10-digit local form.
func FormatMobile(value string) string {
	if value == "" {
		return value
	}
	digits := nonDigit.ReplaceAllString(value, "")
	if len(digits) == 11 && strings.HasPrefix(digits, "0") {
		return digits[1:]
	}
	return digits
}

// FormatGender maps M/MALE and F/FEMALE to the canonical tokens and
// passes anything else through upper-cased.
func FormatGender(value string) string {
	if value == "" {
		return value
	}
	switch g := strings.ToUpper(value); g {
	case "M", "MALE":
		return "MALE"
	case "F", "FEMALE":
		return "FEMALE"
	default:
		return g
	}
}

// regionNames maps Philippine administrative region codes to their long
// form used in registry exports.
var regionNames = map[string]string{
	"REGION I":    "REGION I ILOCOS REGION",
	"REGION II":   "REGION II CAGAYAN VALLEY",
	"REGION III":  "REGION III CENTRAL LUZON",
	"REGION IV-A": "REGION IV-A CALABARZON",
	"REGION IV-B": "REGION IV-B MIMAROPA",
	"REGION V":    "REGION V BICOL REGION",
	"REGION VI":   "REGION VI WESTERN VISAYAS",
	"REGION VII":  "REGION VII CENTRAL VISAYAS",
	"REGION VIII": "REGION VIII EASTERN VISAYAS",
	"REGION IX":   "REGION IX ZAMBOANGA PENINSULA",
	"REGION X":    "REGION X NORTHERN MINDANAO",
	"REGION XI":   "REGION XI DAVAO REGION",
	"REGION XII":  "REGION XII SOCCSKSARGEN",
	"REGION XIII": "REGION XIII CARAGA",
	"BARMM":       "BARMM BANGSAMORO AUTONOMOUS REGION IN MUSLIM MINDANAO",
	"CAR":         "CAR CORDILLERA ADMINISTRATIVE REGION",
	"NCR":         "NCR NATIONAL CAPITAL REGION",
}

// FormatRegion strips any parenthetical suffix and expands a known region
// code to its long name. Unrecognized values pass through trimmed.
func FormatRegion(value string) string {
	if value == "" {
		return value
	}
	cleaned := strings.TrimSpace(parenthetical.ReplaceAllString(value, ""))
	if long, ok := regionNames[cleaned]; ok {
		return long
	}
	return cleaned
}
