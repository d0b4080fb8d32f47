package parse

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

var (
	ErrInvalidMachineID  = errors.New("invalid machine id: expected CC followed by four digits")
	ErrInvalidLocationID = errors.New("invalid location id: must not be empty")
)

var (
	machineIDRe = regexp.MustCompile(`^CC[0-9]{4}$`)
	listSepRe   = regexp.MustCompile(`[\n,;\s]+`)
)

// IsMachineID reports whether text, trimmed, is "CC" followed by exactly four digits.
func IsMachineID(text string) bool {
	return machineIDRe.MatchString(strings.TrimSpace(text))
}

// IsLocationID reports whether text is non-empty after trimming.
func IsLocationID(text string) bool {
	return strings.TrimSpace(text) != ""
}

// MachineID returns the trimmed machine id or ErrInvalidMachineID.
func MachineID(text string) (string, error) {
	if !IsMachineID(text) {
		return "", fmt.Errorf("%w: %q", ErrInvalidMachineID, text)
	}
	return strings.TrimSpace(text), nil
}

// LocationID returns the trimmed location id or ErrInvalidLocationID.
func LocationID(text string) (string, error) {
	if !IsLocationID(text) {
		return "", fmt.Errorf("%w: %q", ErrInvalidLocationID, text)
	}
	return strings.TrimSpace(text), nil
}

// SplitIDList tokenises pasted label lists ("A1, A2\nA3;A4 A5"). Empty tokens are
// dropped and repeats keep their first position.
func SplitIDList(raw string) []string {
	parts := listSepRe.Split(raw, -1)
	seen := make(map[string]struct{}, len(parts))
	ids := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if _, dup := seen[p]; dup {
			continue
		}
		seen[p] = struct{}{}
		ids = append(ids, p)
	}
	return ids
}
