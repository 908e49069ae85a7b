/*
 * Copyright 2025 The RuleGo Authors.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 * http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package types

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// durationUnits is the unit parse table. Each unit may appear at most
// once in a literal, combined left-to-right ("1w3d8h").
var durationUnits = []struct {
	suffix string
	scale  float64 // seconds per unit
}{
	{"ns", 1e-9},
	{"μs", 1e-6},
	{"us", 1e-6}, // ASCII fallback for μs
	{"ms", 1e-3},
	{"w", 604800},
	{"d", 86400},
	{"h", 3600},
	{"m", 60},
	{"s", 1},
}

// ParseDuration parses a duration literal such as "5s", "1w3d8h" into a
// time.Duration. Each unit suffix may appear at most once; unknown
// trailing characters are a syntax error.
func ParseDuration(lit string) (time.Duration, error) {
	rest := strings.TrimSpace(lit)
	if rest == "" {
		return 0, fmt.Errorf("types: empty duration literal")
	}
	seen := make(map[string]bool)
	var totalSeconds float64
	for len(rest) > 0 {
		i := 0
		for i < len(rest) && (rest[i] >= '0' && rest[i] <= '9' || rest[i] == '.') {
			i++
		}
		if i == 0 {
			return 0, fmt.Errorf("types: invalid duration literal %q", lit)
		}
		numPart := rest[:i]
		rest = rest[i:]

		var unit string
		var scale float64
		matched := false
		for _, u := range durationUnits {
			if strings.HasPrefix(rest, u.suffix) {
				unit, scale = u.suffix, u.scale
				matched = true
				break
			}
		}
		if !matched {
			return 0, fmt.Errorf("types: unknown duration unit in %q", lit)
		}
		canon := canonicalUnit(unit)
		if seen[canon] {
			return 0, fmt.Errorf("types: duration unit %q repeated in %q", unit, lit)
		}
		seen[canon] = true

		n, err := strconv.ParseFloat(numPart, 64)
		if err != nil {
			return 0, fmt.Errorf("types: invalid duration number %q: %w", numPart, err)
		}
		totalSeconds += n * scale
		rest = rest[len(unit):]
	}
	return time.Duration(totalSeconds * float64(time.Second)), nil
}

func canonicalUnit(unit string) string {
	if unit == "us" {
		return "μs"
	}
	return unit
}

// FormatDuration renders d back into the canonical combined-unit form
// (largest unit first), so format(parse(lit)) is stable for any valid
// literal.
func FormatDuration(d time.Duration) string {
	if d == 0 {
		return "0s"
	}
	remaining := d.Nanoseconds()
	var sb strings.Builder
	order := []struct {
		suffix string
		nanos  int64
	}{
		{"w", 604800e9},
		{"d", 86400e9},
		{"h", 3600e9},
		{"m", 60e9},
		{"s", 1e9},
		{"ms", 1e6},
		{"μs", 1e3},
		{"ns", 1},
	}
	for _, u := range order {
		if remaining >= u.nanos {
			n := remaining / u.nanos
			remaining -= n * u.nanos
			fmt.Fprintf(&sb, "%d%s", n, u.suffix)
		}
	}
	if sb.Len() == 0 {
		return "0s"
	}
	return sb.String()
}
