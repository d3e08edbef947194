package domain

import (
	"strconv"
	"strings"
	"time"
)

const (
	fieldCount = 4

	// sourceDateLayout is the YYYYMMDD form of field 0.
	sourceDateLayout = "20060102"

	// tenths converts the integer source units into whole units.
	tenths = 10.0
)

// ParseLine converts one raw line into an Observation. It returns a
// *ParseError when the line is rejected; it never panics.
//
// The line is trimmed of surrounding whitespace (including the trailing
// newline) and split on tabs. Each field is trimmed again before parsing,
// since source files pad the measurements with spaces.
func ParseLine(line string) (Observation, error) {
	fields := strings.Split(strings.TrimSpace(line), "\t")
	if len(fields) != fieldCount {
		return Observation{}, &ParseError{Kind: ErrMalformedRecord, Line: line, Field: -1}
	}

	date, err := time.Parse(sourceDateLayout, strings.TrimSpace(fields[0]))
	if err != nil {
		return Observation{}, &ParseError{Kind: ErrInvalidDate, Line: line, Field: 0, Err: err}
	}

	var values [3]float64
	for i := range values {
		v, err := parseTenths(fields[i+1])
		if err != nil {
			return Observation{}, &ParseError{Kind: ErrInvalidNumber, Line: line, Field: i + 1, Err: err}
		}
		values[i] = v
	}

	return Observation{
		Date:          date,
		MaxTemp:       values[0],
		MinTemp:       values[1],
		Precipitation: values[2],
	}, nil
}

// parseTenths parses an integer count of tenths and returns the value in
// whole units.
func parseTenths(s string) (float64, error) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, err
	}
	return float64(n) / tenths, nil
}
