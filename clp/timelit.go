package clp

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// parseTimeLiteral parses the digits of a 0t time literal (the text
// after the "0t" radix prefix, including any leading sign). With a sign
// prefix the value is relative to now in local time; without one it is
// an absolute local calendar time. DST is compensated by subtracting one
// hour when the resulting local time falls in daylight-saving time,
// mirroring the reference implementation's tm_isdst>0 correction.
func parseTimeLiteral(lexeme string, now time.Time) (int64, error) {
	if lexeme == "" {
		return 0, fmt.Errorf("empty time literal")
	}
	sign := 0
	switch lexeme[0] {
	case '+':
		sign = 1
		lexeme = lexeme[1:]
	case '-':
		sign = -1
		lexeme = lexeme[1:]
	}

	datePart := lexeme
	timePart := ""
	if idx := strings.IndexByte(lexeme, '.'); idx >= 0 {
		datePart = lexeme[:idx]
		timePart = lexeme[idx+1:]
	}

	dateFields := strings.Split(datePart, "/")
	if len(dateFields) == 0 || dateFields[0] == "" {
		return 0, fmt.Errorf("time literal requires at least a year")
	}
	year, err := strconv.Atoi(dateFields[0])
	if err != nil {
		return 0, fmt.Errorf("invalid year %q: %w", dateFields[0], err)
	}
	month, day := 1, 1
	if sign != 0 {
		month, day = 0, 0
	}
	if len(dateFields) > 1 && dateFields[1] != "" {
		if month, err = strconv.Atoi(dateFields[1]); err != nil {
			return 0, fmt.Errorf("invalid month %q: %w", dateFields[1], err)
		}
	}
	if len(dateFields) > 2 && dateFields[2] != "" {
		if day, err = strconv.Atoi(dateFields[2]); err != nil {
			return 0, fmt.Errorf("invalid day %q: %w", dateFields[2], err)
		}
	}

	hour, minute, second := 0, 0, 0
	if timePart != "" {
		timeFields := strings.Split(timePart, ":")
		if hour, err = strconv.Atoi(timeFields[0]); err != nil {
			return 0, fmt.Errorf("invalid hour %q: %w", timeFields[0], err)
		}
		if len(timeFields) > 1 && timeFields[1] != "" {
			if minute, err = strconv.Atoi(timeFields[1]); err != nil {
				return 0, fmt.Errorf("invalid minute %q: %w", timeFields[1], err)
			}
		}
		if len(timeFields) > 2 && timeFields[2] != "" {
			if second, err = strconv.Atoi(timeFields[2]); err != nil {
				return 0, fmt.Errorf("invalid second %q: %w", timeFields[2], err)
			}
		}
	}

	if sign != 0 {
		t := now.AddDate(sign*year, sign*month, sign*day)
		t = t.Add(time.Duration(sign) * (time.Duration(hour)*time.Hour + time.Duration(minute)*time.Minute + time.Duration(second)*time.Second))
		return t.Unix(), nil
	}

	t := time.Date(year, time.Month(month), day, hour, minute, second, 0, time.Local)
	if isDST(t) {
		t = t.Add(-time.Hour)
	}
	return t.Unix(), nil
}

// isDST reports whether t's local zone offset differs from the offset
// observed at the start of its year, which for almost all zones means
// daylight saving is in effect.
func isDST(t time.Time) bool {
	_, off := t.Zone()
	jan1 := time.Date(t.Year(), time.January, 1, 0, 0, 0, 0, t.Location())
	_, janOff := jan1.Zone()
	return off != janOff
}
