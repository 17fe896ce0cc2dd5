package finance

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var (
	dayPattern       = regexp.MustCompile(`^\d{4}-\d{1,2}-\d{1,2}$`)
	yearMonthPattern = regexp.MustCompile(`^\d{4}-\d{1,2}(-\d{1,2})?$`)
	yearPattern      = regexp.MustCompile(`^\d{4}(-\d{1,2}){0,2}$`)

	weekLabelPattern    = regexp.MustCompile(`^\d{4}W\d{1,2}$`)
	monthLabelPattern   = regexp.MustCompile(`^\d{4}M\d{1,2}$`)
	quarterLabelPattern = regexp.MustCompile(`^\d{4}Q\d{1,2}$`)
	yearLabelPattern    = regexp.MustCompile(`^\d{4}$`)
)

// GetFreqLabel aggregates a date value into a period label at the given
// frequency. Supported frequencies are Y, Q, M, W and D (case-insensitive).
// Pre-formed labels such as "2020W18", "2020M5" or "2020Q2" pass through
// unchanged. Week numbering follows ISO 8601; the label year is the calendar
// year of the date.
func GetFreqLabel(dateValue, freq string) (string, error) {
	switch strings.ToUpper(freq) {
	case "D":
		return freqLabelByDay(strings.ToUpper(dateValue))
	case "W":
		return freqLabelByWeek(strings.ToUpper(dateValue))
	case "M":
		return freqLabelByMonth(strings.ToUpper(dateValue))
	case "Q":
		return freqLabelByQuarter(strings.ToUpper(dateValue))
	case "Y":
		return freqLabelByYear(strings.ToUpper(dateValue))
	default:
		return "", fmt.Errorf("frequency %s not supported", freq)
	}
}

func freqLabelByDay(dateValue string) (string, error) {
	if !dayPattern.MatchString(dateValue) {
		return "", fmt.Errorf("date needs to be in yyyy-mm-dd format when freq is D")
	}
	if _, err := parseDateParts(dateValue); err != nil {
		return "", fmt.Errorf("date needs to be in yyyy-mm-dd format when freq is D")
	}
	return dateValue, nil
}

func freqLabelByWeek(dateValue string) (string, error) {
	if weekLabelPattern.MatchString(dateValue) {
		return dateValue, nil
	}
	if !dayPattern.MatchString(dateValue) {
		return "", fmt.Errorf("date needs to be in yyyy-mm-dd format when freq is W")
	}
	date, err := parseDateParts(dateValue)
	if err != nil {
		return "", fmt.Errorf("date needs to be in yyyy-mm-dd format when freq is W")
	}
	_, week := date.ISOWeek()
	return fmt.Sprintf("%dW%d", date.Year(), week), nil
}

func freqLabelByMonth(dateValue string) (string, error) {
	if monthLabelPattern.MatchString(dateValue) {
		return dateValue, nil
	}
	if !yearMonthPattern.MatchString(dateValue) {
		return "", fmt.Errorf("date needs to be in yyyy-mm-dd or yyyy-mm format when freq is M")
	}
	date, err := parseDateParts(dateValue)
	if err != nil {
		return "", fmt.Errorf("date needs to be in yyyy-mm-dd or yyyy-mm format when freq is M")
	}
	return fmt.Sprintf("%dM%d", date.Year(), int(date.Month())), nil
}

func freqLabelByQuarter(dateValue string) (string, error) {
	if quarterLabelPattern.MatchString(dateValue) {
		return dateValue, nil
	}
	if !yearMonthPattern.MatchString(dateValue) {
		return "", fmt.Errorf("date needs to be in yyyy-mm-dd or yyyy-mm format when freq is Q")
	}
	date, err := parseDateParts(dateValue)
	if err != nil {
		return "", fmt.Errorf("date needs to be in yyyy-mm-dd or yyyy-mm format when freq is Q")
	}
	quarter := (int(date.Month()) + 2) / 3
	return fmt.Sprintf("%dQ%d", date.Year(), quarter), nil
}

func freqLabelByYear(dateValue string) (string, error) {
	if yearLabelPattern.MatchString(dateValue) {
		return dateValue, nil
	}
	if !yearPattern.MatchString(dateValue) {
		return "", fmt.Errorf("date needs to be in yyyy-mm-dd, yyyy-mm or yyyy format when freq is Y")
	}
	date, err := parseDateParts(dateValue)
	if err != nil {
		return "", fmt.Errorf("date needs to be in yyyy-mm-dd, yyyy-mm or yyyy format when freq is Y")
	}
	return strconv.Itoa(date.Year()), nil
}

// parseDateParts parses "yyyy[-mm[-dd]]" with 1-2 digit month/day; missing
// parts default to 1. Rejects values that are not real calendar dates.
func parseDateParts(dateValue string) (time.Time, error) {
	parts := strings.Split(dateValue, "-")
	if len(parts) == 0 || len(parts) > 3 {
		return time.Time{}, fmt.Errorf("invalid date %q", dateValue)
	}

	numbers := make([]int, 3)
	numbers[1], numbers[2] = 1, 1
	for i, part := range parts {
		n, err := strconv.Atoi(part)
		if err != nil {
			return time.Time{}, fmt.Errorf("invalid date %q", dateValue)
		}
		numbers[i] = n
	}

	year, month, day := numbers[0], numbers[1], numbers[2]
	date := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	if date.Year() != year || int(date.Month()) != month || date.Day() != day {
		return time.Time{}, fmt.Errorf("invalid date %q", dateValue)
	}
	return date, nil
}
