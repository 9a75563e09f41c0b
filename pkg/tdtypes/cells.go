package tdtypes

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

var timestampLayouts = []string{
	"2006-01-02T15:04:05.000Z0700",
	"2006-01-02T15:04:05.000000Z0700",
	"2006-01-02T15:04:05.000000000Z0700",
	time.RFC3339Nano,
	"2006-01-02 15:04:05.000",
	"2006-01-02 15:04:05.000000",
	"2006-01-02 15:04:05.000000000",
	"2006-01-02 15:04:05",
}

// ParseTimestamp decodes a timestamp cell in any of the three response encodings.
// Numeric cells are epoch milliseconds. A nil cell yields the zero time.
func ParseTimestamp(v any) (time.Time, error) {
	switch x := v.(type) {
	case nil:
		return time.Time{}, nil
	case time.Time:
		return x, nil
	case json.Number:
		ms, err := x.Int64()
		if err != nil {
			return time.Time{}, fmt.Errorf("timestamp %q: %w", x, err)
		}
		return time.UnixMilli(ms), nil
	case float64:
		return time.UnixMilli(int64(x)), nil
	case int64:
		return time.UnixMilli(x), nil
	case int:
		return time.UnixMilli(int64(x)), nil
	case string:
		if ms, err := strconv.ParseInt(x, 10, 64); err == nil {
			return time.UnixMilli(ms), nil
		}
		for _, layout := range timestampLayouts {
			if t, err := time.ParseInLocation(layout, x, time.Local); err == nil {
				return t, nil
			}
		}
		return time.Time{}, fmt.Errorf("unrecognized timestamp %q", x)
	}
	return time.Time{}, fmt.Errorf("unsupported timestamp cell %T", v)
}

// AsInt64 converts a numeric cell. NULL cells become 0.
func AsInt64(v any) (int64, error) {
	switch x := v.(type) {
	case nil:
		return 0, nil
	case json.Number:
		if n, err := x.Int64(); err == nil {
			return n, nil
		}
		f, err := x.Float64()
		if err != nil {
			return 0, fmt.Errorf("integer cell %q: %w", x, err)
		}
		return int64(f), nil
	case float64:
		return int64(x), nil
	case int64:
		return x, nil
	case int:
		return int64(x), nil
	case bool:
		if x {
			return 1, nil
		}
		return 0, nil
	case string:
		n, err := strconv.ParseInt(x, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("integer cell %q: %w", x, err)
		}
		return n, nil
	}
	return 0, fmt.Errorf("unsupported integer cell %T", v)
}

// AsString renders a cell as text. NULL cells become "".
func AsString(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case json.Number:
		return x.String()
	default:
		return fmt.Sprint(x)
	}
}
