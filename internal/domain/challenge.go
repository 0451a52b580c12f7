// Package domain contains core domain types for the CTF admin console.
package domain

import (
	"math"
	"strconv"
	"strings"
)

// Challenge is the console's cached copy of a scored CTF task.
type Challenge struct {
	ID               int     `json:"id"`
	Name             string  `json:"name" validate:"required,max=80"`
	Category         string  `json:"category" validate:"required,max=80"`
	Description      string  `json:"description"`
	Value            int     `json:"value" validate:"gte=0"`
	Hidden           bool    `json:"hidden"`
	Hint             string  `json:"hint,omitempty"`
	PercentageSolved float64 `json:"percentage_solved"`
}

// SolvedPercent returns the solve ratio as a rounded percentage.
func (c Challenge) SolvedPercent() int {
	return int(math.Round(c.PercentageSolved * 100))
}

// CategoryGroup is one row of the challenge board.
type CategoryGroup struct {
	Category   string
	Anchor     string
	Challenges []Challenge
}

// GroupByCategory arranges challenges into board rows. Categories are ordered
// by scanning the list from the end; challenges keep their listing order.
func GroupByCategory(challenges []Challenge) []CategoryGroup {
	index := make(map[string]int)
	var groups []CategoryGroup
	for i := len(challenges) - 1; i >= 0; i-- {
		cat := challenges[i].Category
		if _, ok := index[cat]; ok {
			continue
		}
		index[cat] = len(groups)
		groups = append(groups, CategoryGroup{Category: cat, Anchor: CategoryAnchor(cat)})
	}
	for _, c := range challenges {
		g := &groups[index[c.Category]]
		g.Challenges = append(g.Challenges, c)
	}
	return groups
}

// CategoryAnchor returns a stable element id for a category: the 32-bit
// string hash of the name with spaces replaced by dashes.
func CategoryAnchor(category string) string {
	var hash int32
	for _, r := range strings.ReplaceAll(category, " ", "-") {
		if r > 0xFFFF {
			// hash UTF-16 surrogate pairs like the browser did
			r -= 0x10000
			hash = (hash << 5) - hash + int32(0xD800+(r>>10))
			hash = (hash << 5) - hash + int32(0xDC00+(r&0x3FF))
			continue
		}
		hash = (hash << 5) - hash + int32(r)
	}
	return "cat" + strconv.Itoa(int(hash))
}

// FindChallenge returns the challenge with the given id.
func FindChallenge(challenges []Challenge, id int) (Challenge, bool) {
	for _, c := range challenges {
		if c.ID == id {
			return c, true
		}
	}
	return Challenge{}, false
}
