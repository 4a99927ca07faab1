package model

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
)

// ErrMalformedAgent is wrapped when an agent name carries no numeric suffix.
var ErrMalformedAgent = errors.New("agent name has no numeric suffix")

type MalformedAgentError struct {
	Name string
}

func (e *MalformedAgentError) Error() string {
	return fmt.Sprintf("%s: %q", ErrMalformedAgent, e.Name)
}

func (e *MalformedAgentError) Unwrap() error { return ErrMalformedAgent }

// AgentOrdinal returns the number an edge server agent carries at the end of
// its name, e.g. 54 for "dc54". Ordinals are 0..999, so the last three
// characters are tried first, then two, then one.
func AgentOrdinal(name string) (int, error) {
	r := []rune(name)
	for _, width := range []int{3, 2, 1} {
		from := len(r) - width
		if from < 0 {
			from = 0
		}
		if n, ok := parseDigits(string(r[from:])); ok {
			return n, nil
		}
	}
	return 0, &MalformedAgentError{Name: name}
}

func parseDigits(s string) (int, bool) {
	if s == "" {
		return 0, false
	}
	for _, c := range s {
		if c < '0' || c > '9' {
			return 0, false
		}
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, false
	}
	return n, true
}

// SortAgents returns a copy of names ordered by AgentOrdinal. Agents sharing
// an ordinal are ordered by name.
func SortAgents(names []string) ([]string, error) {
	ordinals := make(map[string]int, len(names))
	for _, n := range names {
		o, err := AgentOrdinal(n)
		if err != nil {
			return nil, err
		}
		ordinals[n] = o
	}
	out := append([]string(nil), names...)
	sort.SliceStable(out, func(i, j int) bool {
		oi, oj := ordinals[out[i]], ordinals[out[j]]
		if oi != oj {
			return oi < oj
		}
		return out[i] < out[j]
	})
	return out, nil
}
