package rowprocessor

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/rowforge/tabular-import/internal/domain"
)

// dateLayouts and datetimeLayouts are tried in order; spec.md §4.5 requires
// accepting "ISO-8601 and common regional variants" (DD/MM/YYYY is the
// Brazilian convention that goes with the vehicle preset's other fields).
var dateLayouts = []string{"2006-01-02", "02/01/2006", "02-01-2006"}
var datetimeLayouts = []string{time.RFC3339, "2006-01-02 15:04:05", "02/01/2006 15:04:05"}

func parseWithLayouts(raw string, layouts []string) (time.Time, error) {
	var lastErr error
	for _, layout := range layouts {
		t, err := time.Parse(layout, raw)
		if err == nil {
			return t, nil
		}
		lastErr = err
	}
	return time.Time{}, lastErr
}

// currencyReplacer strips the currency and whitespace noise that commonly
// surrounds a monetary decimal before the separator disambiguation below.
var currencyReplacer = strings.NewReplacer("R$", "", "$", "", "€", "", " ", "")

// parseDecimal accepts either dot- or comma-decimals after trimming
// currency/thousand separators (spec.md §4.5): whichever of ',' or '.'
// appears LAST in the string is the decimal point; every earlier occurrence
// of either character is a thousands separator and is dropped.
func parseDecimal(raw string) (float64, error) {
	s := currencyReplacer.Replace(raw)
	sepIdx := strings.LastIndex(s, ",")
	if dot := strings.LastIndex(s, "."); dot > sepIdx {
		sepIdx = dot
	}

	var b strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c != ',' && c != '.' {
			b.WriteByte(c)
			continue
		}
		if i == sepIdx {
			b.WriteByte('.')
		}
	}
	return strconv.ParseFloat(b.String(), 64)
}

// parseBoolExtended accepts spec.md §4.5's full set,
// {true,false,1,0,yes,no,sim,não}, case-insensitively.
func parseBoolExtended(raw string) (bool, error) {
	switch strings.ToLower(raw) {
	case "yes", "sim":
		return true, nil
	case "no", "não", "nao":
		return false, nil
	}
	return strconv.ParseBool(raw)
}

// plateRegex matches old and Mercosul Brazilian plate formats, the fixed
// "placa" validator named in spec.md §8's vehicle import scenario.
var plateRegex = regexp.MustCompile(`^[A-Z]{3}[0-9][A-Z0-9][0-9]{2}$`)

func validate(kind, raw string, value interface{}) error {
	switch kind {
	case "placa":
		if !plateRegex.MatchString(strings.ToUpper(strings.ReplaceAll(raw, "-", ""))) {
			return fmt.Errorf("%w: %q is not a valid plate", ErrValidationFailed, raw)
		}
	case "year":
		y, ok := value.(int64)
		if !ok || y < 1900 || y > int64(time.Now().Year())+1 {
			return fmt.Errorf("%w: %q is not a plausible year", ErrValidationFailed, raw)
		}
	case "positive":
		switch v := value.(type) {
		case float64:
			if v <= 0 {
				return fmt.Errorf("%w: %q must be positive", ErrValidationFailed, raw)
			}
		case int64:
			if v <= 0 {
				return fmt.Errorf("%w: %q must be positive", ErrValidationFailed, raw)
			}
		}
	case "":
		// no extra validation requested
	default:
		// unknown validators are treated as advisory, not fatal, so a
		// typo'd mapping doesn't brick an otherwise-valid import
	}
	return nil
}

// coerce converts a raw cell value to the Go type appropriate for col.Type,
// then runs col.Validate against it.
func coerce(col domain.ColumnMapping, raw string) (interface{}, error) {
	trimmed := strings.TrimSpace(raw)

	if trimmed == "" {
		if col.Required {
			return nil, ErrMissingColumn
		}
		return nil, nil
	}

	var value interface{}
	var err error

	switch col.Type {
	case domain.ColString, domain.ColFK:
		value = trimmed
	case domain.ColInt:
		n, perr := strconv.ParseInt(trimmed, 10, 64)
		if perr != nil {
			// "integers accept integral decimals without fractional part"
			if f, ferr := strconv.ParseFloat(trimmed, 64); ferr == nil && f == math.Trunc(f) {
				n, perr = int64(f), nil
			}
		}
		value, err = n, perr
	case domain.ColFloat:
		f, perr := strconv.ParseFloat(trimmed, 64)
		value, err = f, perr
	case domain.ColDecimal:
		f, perr := parseDecimal(trimmed)
		value, err = f, perr
	case domain.ColBoolean:
		b, perr := parseBoolExtended(trimmed)
		value, err = b, perr
	case domain.ColDate:
		t, perr := parseWithLayouts(trimmed, dateLayouts)
		value, err = t, perr
	case domain.ColDatetime:
		t, perr := parseWithLayouts(trimmed, datetimeLayouts)
		value, err = t, perr
	default:
		value = trimmed
	}
	if err != nil {
		return nil, fmt.Errorf("coerce %s=%q as %s: %w", col.SourceColumn, raw, col.Type, err)
	}

	if col.Validate != "" {
		if err := validate(col.Validate, trimmed, value); err != nil {
			return nil, err
		}
	}
	return value, nil
}
