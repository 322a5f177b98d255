// Copyright 2026 The connector-oss Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"strings"

	"github.com/spf13/pflag"
)

// maxSuggestDistance is the largest edit distance still worth
// suggesting.
const maxSuggestDistance = 3

// suggestCommand returns the subcommand the user most likely meant, or
// "".
func suggestCommand(unknown string, commands []*Command) string {
	names := make([]string, len(commands))
	for i, command := range commands {
		names[i] = command.Name
	}
	return closest(unknown, names)
}

// suggestFlag finds the first flag in args that flagSet does not
// define and returns the closest defined one as "--name", or "".
func suggestFlag(args []string, flagSet *pflag.FlagSet) string {
	for _, arg := range args {
		if arg == "--" {
			return ""
		}
		if !strings.HasPrefix(arg, "-") || arg == "-" {
			continue
		}
		name, _, _ := strings.Cut(strings.TrimLeft(arg, "-"), "=")
		if flagSet.Lookup(name) != nil || (len(name) == 1 && flagSet.ShorthandLookup(name) != nil) {
			continue
		}

		var names []string
		flagSet.VisitAll(func(flag *pflag.Flag) { names = append(names, flag.Name) })
		if match := closest(name, names); match != "" {
			return "--" + match
		}
		return ""
	}
	return ""
}

// closest picks the candidate input most likely abbreviates or
// misspells. A unique candidate starting with input (at least three
// characters) wins outright: "prov" means "provenance". Otherwise the
// candidate with the smallest edit distance within
// maxSuggestDistance wins, earlier candidates winning ties.
func closest(input string, candidates []string) string {
	if len(input) >= 3 {
		prefixed := ""
		count := 0
		for _, candidate := range candidates {
			if strings.HasPrefix(candidate, input) {
				prefixed = candidate
				count++
			}
		}
		if count == 1 {
			return prefixed
		}
	}

	best, bestDistance := "", maxSuggestDistance+1
	for _, candidate := range candidates {
		if distance := editDistance(input, candidate); distance < bestDistance {
			best, bestDistance = candidate, distance
		}
	}
	return best
}

// editDistance is the Levenshtein distance between a and b, counted in
// runes.
func editDistance(a, b string) int {
	source, target := []rune(a), []rune(b)
	if len(source) < len(target) {
		source, target = target, source
	}
	above := make([]int, len(target)+1)
	row := make([]int, len(target)+1)
	for j := range above {
		above[j] = j
	}
	for i, s := range source {
		row[0] = i + 1
		for j, t := range target {
			substitution := above[j]
			if s != t {
				substitution++
			}
			row[j+1] = min(above[j+1]+1, row[j]+1, substitution)
		}
		above, row = row, above
	}
	return above[len(target)]
}
