package services

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/collabflow/backend/internal/utils"
	"github.com/collabflow/backend/pkg/response"
)

// FlexID is an id that clients may send either as a JSON number or a string.
type FlexID uint

func (id *FlexID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	s := strings.TrimSpace(strings.Trim(string(b), `"`))
	// null and "" both mean no id.
	if s == "null" || s == "" {
		*id = 0
		return nil
	}
	v, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid id %s", b)
	}
	*id = FlexID(v)
	return nil
}

// parseID converts a decoded JSON value into an id.
func parseID(v interface{}) (uint, bool) {
	switch t := v.(type) {
	case float64:
		if t < 0 || t != float64(uint(t)) {
			return 0, false
		}
		return uint(t), true
	case string:
		n, err := strconv.ParseUint(strings.TrimSpace(t), 10, 64)
		if err != nil {
			return 0, false
		}
		return uint(n), true
	case json.Number:
		n, err := strconv.ParseUint(t.String(), 10, 64)
		if err != nil {
			return 0, false
		}
		return uint(n), true
	}
	return 0, false
}

var dueDateLayouts = []string{time.RFC3339Nano, time.RFC3339, "2006-01-02T15:04:05", "2006-01-02"}

// parseDueDate accepts ISO 8601 timestamps and plain dates.
func parseDueDate(s string) (*time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range dueDateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return &t, nil
		}
	}
	return nil, response.NewBadRequest("Invalid date format")
}

// cleanText sanitizes s and enforces required/max-length rules.
func cleanText(s string, required bool, max int, requiredMsg, tooLongMsg string) (string, error) {
	s = utils.SanitizeText(s)
	if required && s == "" {
		return "", response.NewBadRequest(requiredMsg)
	}
	if utf8.RuneCountInString(s) > max {
		return "", response.NewBadRequest(tooLongMsg)
	}
	return s, nil
}

// formatValue renders a stored or requested value for the shallow diff.
func formatValue(v interface{}) string {
	switch t := v.(type) {
	case nil:
		return ""
	case *uint:
		if t == nil {
			return ""
		}
		return strconv.FormatUint(uint64(*t), 10)
	case *time.Time:
		if t == nil {
			return ""
		}
		return t.UTC().Format(time.RFC3339)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		return fmt.Sprint(t)
	}
}

// diffValue is the JSON form of a stored value in activity metadata.
func diffValue(v interface{}) interface{} {
	switch t := v.(type) {
	case *uint:
		if t == nil {
			return nil
		}
		return *t
	case *time.Time:
		if t == nil {
			return nil
		}
		return t.UTC().Format(time.RFC3339)
	}
	return v
}
