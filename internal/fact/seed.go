package fact

import (
	"bytes"
	_ "embed"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed seeds.yaml
var defaultSeeds []byte

// DefaultSeeds returns the built-in starter facts.
func DefaultSeeds() []Fact {
	facts, err := DecodeSeeds(bytes.NewReader(defaultSeeds))
	if err != nil {
		panic(fmt.Sprintf("fact: embedded seeds: %v", err))
	}
	return facts
}

// LoadSeeds reads a YAML list of facts from path.
func LoadSeeds(path string) ([]Fact, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read seed file: %w", err)
	}
	defer f.Close()
	return DecodeSeeds(f)
}

// DecodeSeeds parses a YAML list of facts. Unknown keys, missing ids and
// duplicate ids are rejected.
func DecodeSeeds(r io.Reader) ([]Fact, error) {
	var facts []Fact
	decoder := yaml.NewDecoder(r)
	decoder.KnownFields(true)
	if err := decoder.Decode(&facts); err != nil && err != io.EOF {
		return nil, fmt.Errorf("failed to parse seeds: %w", err)
	}

	seen := make(map[string]bool, len(facts))
	for i, f := range facts {
		if f.ID == "" {
			return nil, fmt.Errorf("seeds[%d]: id is required", i)
		}
		if seen[f.ID] {
			return nil, fmt.Errorf("seeds[%d]: duplicate id %q", i, f.ID)
		}
		seen[f.ID] = true
		if f.VotesInteresting < 0 || f.VotesMindblowing < 0 || f.VotesFalse < 0 {
			return nil, fmt.Errorf("seeds[%d]: vote counters must be non-negative", i)
		}
	}
	return facts, nil
}
