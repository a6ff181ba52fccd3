package models

import (
	"errors"
	"strings"
)

// ErrInvalidAddress is returned when an address normalizes to an empty name.
var ErrInvalidAddress = errors.New("invalid address")

const addressSuffix = ".omg.lol"

// AddressName is a case-normalized account name on the service.
type AddressName string

// NormalizeAddress trims whitespace, a leading "@" and the service suffix, and
// lower-cases the result.
func NormalizeAddress(s string) (AddressName, error) {
	n := strings.ToLower(strings.TrimSpace(s))
	n = strings.TrimPrefix(n, "@")
	n = strings.TrimSuffix(n, addressSuffix)
	if n == "" || strings.ContainsAny(n, "/ \t\n") {
		return "", ErrInvalidAddress
	}
	return AddressName(n), nil
}

// MustAddress is like NormalizeAddress but panics on invalid input.
func MustAddress(s string) AddressName {
	a, err := NormalizeAddress(s)
	if err != nil {
		panic(err)
	}
	return a
}

func (a AddressName) String() string { return string(a) }

// ParseAddressList splits newline/comma separated text into normalized,
// de-duplicated addresses. Invalid lines are skipped.
func ParseAddressList(text string) []AddressName {
	fields := strings.FieldsFunc(text, func(r rune) bool {
		return r == '\n' || r == '\r' || r == ','
	})
	seen := make(map[AddressName]struct{}, len(fields))
	out := make([]AddressName, 0, len(fields))
	for _, f := range fields {
		a, err := NormalizeAddress(f)
		if err != nil {
			continue
		}
		if _, ok := seen[a]; ok {
			continue
		}
		seen[a] = struct{}{}
		out = append(out, a)
	}
	return out
}

// FormatAddressList is the inverse of ParseAddressList.
func FormatAddressList(list []AddressName) string {
	parts := make([]string, len(list))
	for i, a := range list {
		parts[i] = string(a)
	}
	return strings.Join(parts, "\n")
}
