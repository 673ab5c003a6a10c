// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// suggest.go - "Did you mean" hints for mistyped commands.
package cli

import (
	"sort"
	"strings"
)

// topLevelCommands are the words Parse recognizes, aliases included.
var topLevelCommands = []string{
	"docs", "doc", "documents",
	"ask", "chat",
	"settings", "prefs",
	"config", "cfg",
	"version", "help",
}

// Suggest returns the candidate closest to input, or "" when nothing is
// close enough. The allowed edit distance grows with the input length.
func Suggest(input string, candidates []string) string {
	input = strings.ToLower(input)
	if len(input) < 2 {
		return ""
	}

	maxDistance := 1
	if len(input) >= 4 {
		maxDistance = 2
	}
	if len(input) > 8 {
		maxDistance = 3
	}

	best, bestDistance := "", maxDistance+1
	for _, candidate := range candidates {
		if candidate == "" {
			continue
		}
		d := levenshteinDistance(input, candidate)
		if d == 0 {
			return ""
		}
		if d < bestDistance {
			best, bestDistance = candidate, d
		}
	}
	return best
}

// SuggestCommand suggests a top-level command for a mistyped one.
func SuggestCommand(input string) string {
	return Suggest(input, topLevelCommands)
}

// subcommandNames lists the keys of a handler table in stable order.
func subcommandNames[T any](table map[string]T) []string {
	names := make([]string, 0, len(table))
	for name := range table {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// levenshteinDistance is the number of single-byte insertions, deletions
// or substitutions turning s1 into s2.
func levenshteinDistance(s1, s2 string) int {
	if len(s1) == 0 {
		return len(s2)
	}
	if len(s2) == 0 {
		return len(s1)
	}

	prev := make([]int, len(s2)+1)
	curr := make([]int, len(s2)+1)
	for j := range prev {
		prev[j] = j
	}

	for i := 1; i <= len(s1); i++ {
		curr[0] = i
		for j := 1; j <= len(s2); j++ {
			cost := 0
			if s1[i-1] != s2[j-1] {
				cost = 1
			}
			curr[j] = min(prev[j]+1, curr[j-1]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[len(s2)]
}
