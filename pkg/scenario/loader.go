package scenario

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// isScenarioFile reports whether path has a scenario file extension.
func isScenarioFile(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".yaml" || ext == ".yml"
}

// LoadFile parses and validates a single scenario file.
func LoadFile(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	var s Scenario
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	if err := s.Validate(); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	s.applyDefaults()
	s.SourceFile = path
	return &s, nil
}

// LoadDir loads every scenario file under dir, sorted by filename. Files
// that fail to parse or validate are skipped with a warning. A later file
// with the same ID overrides an earlier one.
func LoadDir(dir string, log *logrus.Logger) ([]*Scenario, error) {
	var files []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && isScenarioFile(path) {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario dir: %w", err)
	}
	sort.Strings(files)

	byID := make(map[string]*Scenario)
	var order []string
	for _, f := range files {
		s, err := LoadFile(f)
		if err != nil {
			log.WithError(err).WithField("file", f).Warn("Skipping scenario file")
			continue
		}
		if prev, ok := byID[s.ID]; ok {
			log.WithFields(logrus.Fields{
				"scenario_id": s.ID,
				"new_file":    f,
				"old_file":    prev.SourceFile,
			}).Info("Scenario ID conflict resolved by later file")
		} else {
			order = append(order, s.ID)
		}
		byID[s.ID] = s
	}

	out := make([]*Scenario, 0, len(order))
	for _, id := range order {
		out = append(out, byID[id])
	}
	log.WithFields(logrus.Fields{"dir": dir, "count": len(out)}).Info("Scenarios loaded")
	return out, nil
}
