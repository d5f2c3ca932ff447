package utils

import (
	"fmt"
	"net/url"
	"strconv"
	"time"
)

func invalidField(fieldErrors map[string][]string, key string) {
	fieldErrors[key] = append(fieldErrors[key], fmt.Sprintf("Invalid field value for field %q.", key))
}

// ParseIntParam reads an integer query parameter. A missing key yields def;
// a malformed value yields def and a field error.
func ParseIntParam(params url.Values, key string, def int, fieldErrors map[string][]string) (int, map[string][]string) {
	if fieldErrors == nil {
		fieldErrors = make(map[string][]string)
	}
	val := params.Get(key)
	if val == "" {
		return def, fieldErrors
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		invalidField(fieldErrors, key)
		return def, fieldErrors
	}
	return n, fieldErrors
}

// ParseTimeParam reads an instant given as Unix milliseconds. A missing key
// yields def.
func ParseTimeParam(params url.Values, key string, def time.Time, fieldErrors map[string][]string) (time.Time, map[string][]string) {
	if fieldErrors == nil {
		fieldErrors = make(map[string][]string)
	}
	val := params.Get(key)
	if val == "" {
		return def, fieldErrors
	}
	ms, err := strconv.ParseInt(val, 10, 64)
	if err != nil || ms < 0 {
		invalidField(fieldErrors, key)
		return def, fieldErrors
	}
	return time.UnixMilli(ms), fieldErrors
}
