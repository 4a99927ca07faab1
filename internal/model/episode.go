package model

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"
)

// EpisodeTimeLayout is the folder naming used by the simulator for one
// training episode: the simulation start time with second precision.
const EpisodeTimeLayout = "2006-01-02_15-04-05"

// ErrMalformedEpisode is wrapped by every episode folder name that does not
// follow EpisodeTimeLayout.
var ErrMalformedEpisode = errors.New("malformed episode folder name")

// MalformedEpisodeError reports which folder failed to parse.
type MalformedEpisodeError struct {
	Name string
	Err  error
}

func (e *MalformedEpisodeError) Error() string {
	return fmt.Sprintf("%s %q: %v", ErrMalformedEpisode, e.Name, e.Err)
}

func (e *MalformedEpisodeError) Unwrap() []error {
	return []error{ErrMalformedEpisode, e.Err}
}

// EpisodeFolder is one episode output folder with its parsed start time.
// Start is the ordering key; Name is kept for filesystem access.
type EpisodeFolder struct {
	Name  string    `json:"name" yaml:"name"`
	Start time.Time `json:"start" yaml:"start"`
}

func ParseEpisodeFolder(name string) (EpisodeFolder, error) {
	start, err := time.Parse(EpisodeTimeLayout, name)
	if err != nil {
		return EpisodeFolder{}, &MalformedEpisodeError{Name: name, Err: err}
	}
	return EpisodeFolder{Name: name, Start: start}, nil
}

// SortEpisodes orders folders chronologically. Equal start times fall back to
// the folder name so the order is total.
func SortEpisodes(folders []EpisodeFolder) {
	sort.SliceStable(folders, func(i, j int) bool {
		if !folders[i].Start.Equal(folders[j].Start) {
			return folders[i].Start.Before(folders[j].Start)
		}
		return folders[i].Name < folders[j].Name
	})
}

// EpisodeNames returns the folder names in the given order.
func EpisodeNames(folders []EpisodeFolder) []string {
	out := make([]string, len(folders))
	for i, f := range folders {
		out[i] = f.Name
	}
	return out
}

// ListEpisodes reads dir and parses every non-hidden entry as an episode
// folder, returned in chronological order. A name that is not a timestamp is
// fatal: without it the episode order is undefined.
func ListEpisodes(dir string) ([]EpisodeFolder, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read episode dir %s: %w", dir, err)
	}
	out := make([]EpisodeFolder, 0, len(entries))
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), ".") {
			continue
		}
		f, err := ParseEpisodeFolder(e.Name())
		if err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	SortEpisodes(out)
	return out, nil
}
