package phrases

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/verte-zerg/voicebridge/internal/model"
)

func TestLoadSkipsBlankAndComments(t *testing.T) {
	path := filepath.Join(t.TempDir(), "phrases.txt")
	content := "# header\n\nHello there\n  Good night  \n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	got, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(got) != 2 || got[0] != "Hello there" || got[1] != "Good night" {
		t.Fatalf("unexpected phrases: %q", got)
	}
}

func TestLoadEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.txt")
	if err := os.WriteFile(path, []byte("# nothing\n"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := Load(path); !errors.Is(err, ErrEmpty) {
		t.Fatalf("expected ErrEmpty, got %v", err)
	}
}

func TestEveryScenarioHasPhrases(t *testing.T) {
	for _, sc := range append([]model.Scenario{model.ScenarioNone}, model.Scenarios...) {
		for _, mode := range []model.Mode{model.ModeAdult, model.ModeChild} {
			got, err := ForScenario(sc, mode)
			if err != nil {
				t.Fatalf("ForScenario(%q, %s): %v", sc, mode, err)
			}
			if len(got) == 0 {
				t.Fatalf("ForScenario(%q, %s) returned nothing", sc, mode)
			}
		}
	}
}

func TestChildModeKeepsShortPhrases(t *testing.T) {
	got, err := ForScenario(model.ScenarioJobInterview, model.ModeChild)
	if err != nil {
		t.Fatalf("ForScenario: %v", err)
	}
	all, _ := ForScenario(model.ScenarioJobInterview, model.ModeAdult)
	if len(got) >= len(all) {
		t.Fatalf("expected child filter to drop long phrases: %d vs %d", len(got), len(all))
	}
	for _, p := range got {
		if n := len(strings.Fields(p)); n > childMaxWords {
			t.Fatalf("phrase %q has %d words", p, n)
		}
	}
}
