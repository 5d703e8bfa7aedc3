// Package phrases loads practice prompts from files and the built-in sets.
package phrases

import (
	"bufio"
	"embed"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/verte-zerg/voicebridge/internal/model"
)

//go:embed data/*.txt
var builtin embed.FS

// ErrEmpty is returned when a phrase list has no usable lines.
var ErrEmpty = errors.New("phrase list is empty")

// Load reads one phrase per line from the provided file path. Blank lines
// and lines starting with # are skipped.
func Load(path string) ([]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := file.Close(); cerr != nil {
			// Best-effort close for read-only phrase list.
			_ = cerr
		}
	}()
	out, err := parse(file)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return out, nil
}

// ForScenario returns the built-in phrases for a scenario, filtered for mode.
// ScenarioNone selects the general set.
func ForScenario(scenario model.Scenario, mode model.Mode) ([]string, error) {
	name := string(scenario)
	if scenario == model.ScenarioNone {
		name = "general"
	}
	file, err := builtin.Open("data/" + name + ".txt")
	if err != nil {
		return nil, fmt.Errorf("no phrases for scenario %q: %w", scenario, err)
	}
	defer func() {
		if cerr := file.Close(); cerr != nil {
			_ = cerr
		}
	}()
	all, err := parse(file)
	if err != nil {
		return nil, fmt.Errorf("scenario %q: %w", scenario, err)
	}
	kept := Filter(all, FilterForMode(mode))
	if len(kept) == 0 {
		return all, nil
	}
	return kept, nil
}

func parse(r io.Reader) ([]string, error) {
	var out []string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		out = append(out, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, ErrEmpty
	}
	return out, nil
}
