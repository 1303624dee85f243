package importer

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// isinRegex checks for the basic structure: 2 letters, 9 alphanumeric, 1 digit.
var isinRegex = regexp.MustCompile(`^[A-Z]{2}[A-Z0-9]{9}[0-9]$`)

// wknRegex checks for the German Wertpapierkennnummer: 6 alphanumeric characters.
var wknRegex = regexp.MustCompile(`^[A-Z0-9]{6}$`)

// NormalizeISIN returns the canonical form of an ISIN as printed on statements
// (spaces removed, upper case). It does not validate it.
func NormalizeISIN(isin string) string {
	return strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(isin), " ", ""))
}

// ValidateISIN checks if a string is a validly formatted ISIN.
// It returns nil if valid, or a descriptive error if invalid.
func ValidateISIN(isin string) error {
	if len(isin) != 12 {
		return fmt.Errorf("invalid length: must be 12 characters, got %d", len(isin))
	}

	if !isinRegex.MatchString(isin) {
		return fmt.Errorf("invalid format: must be 2 uppercase letters, 9 alphanumeric chars, and 1 digit")
	}

	// Convert letters to numbers for check digit calculation
	var numericStr strings.Builder
	for _, char := range isin[:11] {
		if char >= 'A' && char <= 'Z' {
			numericStr.WriteString(strconv.Itoa(int(char - 'A' + 10)))
		} else {
			numericStr.WriteRune(char)
		}
	}

	// Luhn, doubling from the rightmost digit.
	sum := 0
	isSecond := true
	digits := numericStr.String()
	for i := len(digits) - 1; i >= 0; i-- {
		digit := int(digits[i] - '0')
		if isSecond {
			digit *= 2
		}
		sum += (digit / 10) + (digit % 10)
		isSecond = !isSecond
	}

	expectedCheckDigit := (10 - (sum % 10)) % 10
	actualCheckDigit := int(isin[11] - '0')
	if expectedCheckDigit != actualCheckDigit {
		return fmt.Errorf("invalid check digit: expected %d, got %d", expectedCheckDigit, actualCheckDigit)
	}
	return nil
}

// ValidateWKN checks the format of a German securities identification number.
func ValidateWKN(wkn string) error {
	if !wknRegex.MatchString(wkn) {
		return fmt.Errorf("invalid WKN %q: must be 6 uppercase alphanumeric characters", wkn)
	}
	return nil
}
