// ABOUTME: Ranks interpretation themes by how often they occur across the journal.
// ABOUTME: Also renders relative bar widths for terminal charts.
package themes

import (
	"sort"
	"strings"

	"github.com/2389-research/dreamscribe/internal/models"
)

// MaxThemes is the number of themes Rank returns at most.
const MaxThemes = 10

// ThemeCount is one row of the ranking.
type ThemeCount struct {
	Theme string `json:"theme"`
	Count int    `json:"count"`
}

// Rank counts themes case-insensitively across interpreted entries and returns
// the most frequent, highest first. Ties keep the order in which a theme was
// first seen while walking entries in the given order. Pending entries
// contribute nothing; the result is empty when no entry is interpreted.
func Rank(entries []models.Entry) []ThemeCount {
	index := make(map[string]int)
	var counts []ThemeCount

	for _, entry := range entries {
		if entry.Interpretation == nil {
			continue
		}
		for _, raw := range entry.Interpretation.Themes {
			theme := Normalize(raw)
			if theme == "" {
				continue
			}
			if i, ok := index[theme]; ok {
				counts[i].Count++
				continue
			}
			index[theme] = len(counts)
			counts = append(counts, ThemeCount{Theme: theme, Count: 1})
		}
	}

	sort.SliceStable(counts, func(i, j int) bool {
		return counts[i].Count > counts[j].Count
	})
	if len(counts) > MaxThemes {
		counts = counts[:MaxThemes]
	}
	return counts
}

// Normalize returns the comparison form of a theme.
func Normalize(theme string) string {
	return strings.ToLower(strings.TrimSpace(theme))
}

// Bars scales each count to a bar length relative to the top count, so the
// most frequent theme fills width. Any non-zero count gets at least one cell.
func Bars(counts []ThemeCount, width int) []int {
	bars := make([]int, len(counts))
	if width <= 0 {
		return bars
	}

	top := 0
	for _, c := range counts {
		if c.Count > top {
			top = c.Count
		}
	}
	if top == 0 {
		return bars
	}

	for i, c := range counts {
		n := c.Count * width / top
		if n == 0 && c.Count > 0 {
			n = 1
		}
		bars[i] = n
	}
	return bars
}
