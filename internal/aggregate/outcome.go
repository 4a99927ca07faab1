package aggregate

import (
	"errors"
	"fmt"

	"eisim-progress/internal/model"
)

var (
	ErrScenarioCountMismatch = errors.New("scenario count differs between episodes")
	ErrAgentCountMismatch    = errors.New("agent count differs between scenario folders")
	ErrNoEpisodes            = errors.New("no episode folders found")
	ErrNoScenarios           = errors.New("no scenario log folders found")
)

// Reason names why a parse produced no result.
type Reason string

const (
	ReasonScenarioCount Reason = "scenario_count"
	ReasonAgentCount    Reason = "agent_count"
	ReasonNoEpisodes    Reason = "no_episodes"
	ReasonNoScenarios   Reason = "no_scenarios"
)

// Mismatch describes a log tree whose shape is inconsistent. Path is the
// episode or scenario folder where the inconsistency was found.
type Mismatch struct {
	Reason Reason `json:"reason"`
	Path   string `json:"path"`
	Want   int    `json:"want"`
	Got    int    `json:"got"`
}

func (m *Mismatch) Error() string {
	switch m.Reason {
	case ReasonNoEpisodes:
		return fmt.Sprintf("%s: %v", m.Path, ErrNoEpisodes)
	case ReasonNoScenarios:
		return fmt.Sprintf("%s: %v", m.Path, ErrNoScenarios)
	default:
		return fmt.Sprintf("%s: %v: want %d, got %d", m.Path, m.Unwrap(), m.Want, m.Got)
	}
}

func (m *Mismatch) Unwrap() error {
	switch m.Reason {
	case ReasonScenarioCount:
		return ErrScenarioCountMismatch
	case ReasonAgentCount:
		return ErrAgentCountMismatch
	case ReasonNoScenarios:
		return ErrNoScenarios
	default:
		return ErrNoEpisodes
	}
}

// Outcome is the result of a parse: exactly one of Results and Mismatch is
// set. A mismatch is an expected result for a run that was interrupted or
// misconfigured, not an error.
type Outcome struct {
	Results  *model.Results
	Mismatch *Mismatch
}

func (o Outcome) OK() bool { return o.Results != nil && o.Mismatch == nil }

// Err returns the mismatch as an error, for callers that abort on it.
func (o Outcome) Err() error {
	if o.Mismatch != nil {
		return o.Mismatch
	}
	if o.Results == nil {
		return ErrNoEpisodes
	}
	return nil
}
