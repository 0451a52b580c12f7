package discovery

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Separator joins prerequisite ids inside one encoded rule.
const Separator = "&"

var (
	// ErrInvalidIdentifier is returned when an encoded rule holds something
	// other than a positive challenge id.
	ErrInvalidIdentifier = errors.New("discovery: invalid challenge identifier")
	// ErrEmptySelection is returned when decoding an empty rule.
	ErrEmptySelection = errors.New("discovery: empty selection")
)

// Encode joins ids with Separator, dropping repeats and keeping first-seen order.
func Encode(ids []int) string {
	seen := make(map[int]struct{}, len(ids))
	parts := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		parts = append(parts, strconv.Itoa(id))
	}
	return strings.Join(parts, Separator)
}

// Decode parses an encoded rule such as "5&7". Every element must be a
// positive integer; duplicates are dropped.
func Decode(encoded string) ([]int, error) {
	encoded = strings.TrimSpace(encoded)
	if encoded == "" {
		return nil, ErrEmptySelection
	}
	parts := strings.Split(encoded, Separator)
	ids := make([]int, 0, len(parts))
	seen := make(map[int]struct{}, len(parts))
	for _, part := range parts {
		id, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil || id <= 0 {
			return nil, fmt.Errorf("%w: %q", ErrInvalidIdentifier, part)
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	return ids, nil
}
