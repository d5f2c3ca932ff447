package utils

import (
	"errors"
	"regexp"
)

const maxIDLength = 100

var (
	ErrEmptyID          = errors.New("id cannot be empty")
	ErrIDTooLong        = errors.New("id too long (max 100 characters)")
	ErrIDInvalidCharset = errors.New("id contains invalid characters")
)

// GTFS ids in path segments: letters, digits, underscore, hyphen, dot and
// colon (used by agency-prefixed ids such as "1:S1").
var validIDPattern = regexp.MustCompile(`^[A-Za-z0-9_.:-]+$`)

// ValidateID reports whether id can be used as a path identifier.
func ValidateID(id string) error {
	switch {
	case id == "":
		return ErrEmptyID
	case len(id) > maxIDLength:
		return ErrIDTooLong
	case !validIDPattern.MatchString(id):
		return ErrIDInvalidCharset
	}
	return nil
}
