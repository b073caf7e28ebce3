package utils

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

var whitespaceRegex = regexp.MustCompile(`\s+`)

// PortalDateLayout is the DD/MM/YYYY layout used by the portal
const PortalDateLayout = "02/01/2006"

// ISODateLayout is the YYYY-MM-DD layout accepted by the API and CLI
const ISODateLayout = "2006-01-02"

// CleanText collapses internal whitespace to single spaces and trims the result
func CleanText(text string) string {
	return strings.TrimSpace(whitespaceRegex.ReplaceAllString(text, " "))
}

// ParseBRLAmount parses an amount written with Brazilian punctuation
// ("15.000,00") into a float
func ParseBRLAmount(text string) (float64, error) {
	cleaned := strings.TrimSpace(text)
	cleaned = strings.TrimPrefix(cleaned, "R$")
	cleaned = strings.TrimSpace(cleaned)
	cleaned = strings.ReplaceAll(cleaned, ".", "")
	cleaned = strings.ReplaceAll(cleaned, ",", ".")
	return strconv.ParseFloat(cleaned, 64)
}

// ParseISODate parses a YYYY-MM-DD date at midnight UTC
func ParseISODate(value string) (time.Time, error) {
	return time.Parse(ISODateLayout, strings.TrimSpace(value))
}

// FormatPortalDate formats a date as DD/MM/YYYY
func FormatPortalDate(t time.Time) string {
	return t.Format(PortalDateLayout)
}

// TruncateDay drops the clock part of t, keeping its calendar date in UTC
func TruncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
