// Package normalize holds the pure value transforms shared by every sync
// path: canonical date strings, spreadsheet date serials (including the
// historical 1900 leap-year defect those serials carry), and free-text
// cleanup. Nothing here touches the network or the DOM.
package normalize

import (
	"math"
	"regexp"
	"strings"
	"time"
)

// DateMode selects how a pipeline materializes dates.
type DateMode int

const (
	// DateString writes canonical YYYY/MM/DD strings.
	DateString DateMode = iota
	// DateSerial writes spreadsheet date serials.
	DateSerial
)

// serialEpoch is 1899-12-30 UTC, the reference the spreadsheet serial
// system counts days from.
var serialEpoch = time.Date(1899, time.December, 30, 0, 0, 0, 0, time.UTC)

// dateLayouts are tried in order when parsing vendor date text.
var dateLayouts = []string{
	"1/2/2006 3:04:05 PM",
	"1/2/2006 15:04:05",
	"1/2/2006 3:04 PM",
	"1/2/2006",
	"01/02/2006",
	"2006-01-02T15:04:05Z07:00",
	"2006-01-02 15:04:05",
	"2006-01-02",
	"2006/01/02",
	"Jan 2, 2006",
	"January 2, 2006",
	"Jan 2 2006",
	"2 Jan 2006",
}

var (
	whitespaceRe = regexp.MustCompile(`\s+`)
	hashRunRe    = regexp.MustCompile(`#+`)
	orderPrefix  = regexp.MustCompile(`(?i)^ORDER`)
	lineBreakRe  = regexp.MustCompile(`[\r\n]+`)
)

// ParseDate parses vendor date text into a time.Time. The boolean reports
// whether any known layout matched.
func ParseDate(text string) (time.Time, bool) {
	text = strings.TrimSpace(text)
	if text == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if d, err := time.Parse(layout, text); err == nil {
			return d, true
		}
	}
	return time.Time{}, false
}

// FormatDate converts vendor date text to canonical YYYY/MM/DD form.
// Unparseable input is returned unchanged so the value is never dropped.
func FormatDate(text string) string {
	d, ok := ParseDate(text)
	if !ok {
		return text
	}
	return d.Format("2006/01/02")
}

// ExcelSerialToDate converts a spreadsheet date serial to a UTC calendar
// date. Serials at or past the phantom 1900 leap day are off by one and are
// corrected here. Zero, negative, and pre-1900 results are artifacts of
// blank source cells and yield nil.
func ExcelSerialToDate(serial float64) *time.Time {
	if serial <= 0 {
		return nil
	}
	if serial >= 61 {
		serial--
	}

	days := math.Floor(serial)
	frac := serial - days
	d := serialEpoch.AddDate(0, 0, int(days)).
		Add(time.Duration(math.Round(frac * 24 * float64(time.Hour))))

	if d.Year() < 1900 {
		return nil
	}
	return &d
}

// DateToExcelSerial is the inverse transform, reapplying the leap-year
// correction so round-tripping a valid serial is exact.
func DateToExcelSerial(d time.Time) float64 {
	serial := d.UTC().Sub(serialEpoch).Hours() / 24
	if serial >= 61 {
		serial++
	}
	return serial
}

// NormalizeOrderNumber collapses internal whitespace, strips a literal
// leading "ORDER" prefix regardless of case, and collapses runs of '#' to a
// single character.
func NormalizeOrderNumber(raw string) string {
	s := strings.TrimSpace(whitespaceRe.ReplaceAllString(raw, " "))
	s = strings.TrimSpace(orderPrefix.ReplaceAllString(s, ""))
	return hashRunRe.ReplaceAllString(s, "#")
}

// NormalizeStatus lowercases trimmed status text.
func NormalizeStatus(raw string) string {
	return strings.ToLower(strings.TrimSpace(raw))
}

// CleanText collapses embedded line breaks to single spaces and trims,
// for notes and other free-text fields.
func CleanText(raw string) string {
	return strings.TrimSpace(lineBreakRe.ReplaceAllString(raw, " "))
}

// CollapseSpaces squeezes runs of whitespace down to one space and trims.
func CollapseSpaces(raw string) string {
	return strings.TrimSpace(whitespaceRe.ReplaceAllString(raw, " "))
}

// NormalizeHeader makes a header cell comparable across accepted spellings:
// trimmed, lowercased, all whitespace removed.
func NormalizeHeader(h string) string {
	return whitespaceRe.ReplaceAllString(strings.ToLower(strings.TrimSpace(h)), "")
}
