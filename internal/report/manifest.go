package report

import (
	"time"

	"gopkg.in/yaml.v3"
)

// ManifestName is the file the manifest is written to inside the save dir.
const ManifestName = "manifest.yaml"

// Manifest describes one report run and lists what it produced.
type Manifest struct {
	RunID       string             `yaml:"run_id"`
	GeneratedAt time.Time          `yaml:"generated_at"`
	SourceDir   string             `yaml:"source_dir"`
	Window      int                `yaml:"window"`
	Episodes    []string           `yaml:"episodes"`
	Agents      []string           `yaml:"agents"`
	Scenarios   []ScenarioArtifact `yaml:"scenarios"`
	Summary     []string           `yaml:"summary"`
}

// ScenarioArtifact lists the files written for one scenario.
type ScenarioArtifact struct {
	Name             string  `yaml:"name"`
	FinalTotal       float64 `yaml:"final_total"`
	FinalSmoothed    float64 `yaml:"final_smoothed"`
	CumulativeReturn string  `yaml:"cumulative_return"`
	AvgPrice         string  `yaml:"avg_price"`
	Trend            string  `yaml:"trend"`
}

func (m *Manifest) Marshal() ([]byte, error) {
	return yaml.Marshal(m)
}

// ParseManifest reads a manifest written by Writer.
func ParseManifest(data []byte) (*Manifest, error) {
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	return &m, nil
}
