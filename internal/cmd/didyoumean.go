package cmd

import (
	"strings"

	"github.com/sahilm/fuzzy"
)

// levenshtein computes the Levenshtein edit distance between two strings.
func levenshtein(a, b string) int {
	la, lb := len(a), len(b)
	if la == 0 {
		return lb
	}
	if lb == 0 {
		return la
	}

	row := make([]int, lb+1)
	for j := range row {
		row[j] = j
	}

	for i := 1; i <= la; i++ {
		prev := i - 1
		row[0] = i
		for j := 1; j <= lb; j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			val := min(row[j]+1, row[j-1]+1, prev+cost)
			prev = row[j]
			row[j] = val
		}
	}
	return row[lb]
}

// closest returns the candidate within edit distance 3 of s, or "".
func closest(s string, candidates []string, key func(string) string) string {
	bestDist := 4
	bestMatch := ""
	for _, c := range candidates {
		if d := levenshtein(s, strings.ToLower(key(c))); d < bestDist {
			bestDist = d
			bestMatch = c
		}
	}
	return bestMatch
}

// suggestCommand finds the command the user most likely meant. Abbreviations
// and dropped letters ("gen", "genrate") are caught by fuzzy subsequence
// matching; transpositions ("tpyes") fall back to edit distance.
func suggestCommand(unknown string, commands []string) string {
	unknown = strings.ToLower(strings.TrimSpace(unknown))
	if unknown == "" {
		return ""
	}
	lower := make([]string, len(commands))
	for i, c := range commands {
		lower[i] = strings.ToLower(c)
	}
	if matches := fuzzy.Find(unknown, lower); len(matches) > 0 {
		return commands[matches[0].Index]
	}
	return closest(unknown, commands, func(c string) string { return c })
}

// suggestFlag finds the closest flag name to the unknown input.
// Strips leading dashes from both the input and the known flags for comparison,
// but returns the match with its original prefix.
func suggestFlag(unknown string, flags []string) string {
	stripped := strings.ToLower(strings.TrimLeft(unknown, "-"))
	if stripped == "" {
		return ""
	}
	return closest(stripped, flags, func(f string) string { return strings.TrimLeft(f, "-") })
}
