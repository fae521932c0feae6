package tuning

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoad_PartialOverlaysDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tuning.yaml")
	doc := "tick_rate_hz: 30\ncombat:\n  melee_range: 4.0\n"
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	got, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got.TickRateHz != 30 {
		t.Fatalf("tick rate not overridden: %d", got.TickRateHz)
	}
	if got.Combat.MeleeRange != 4.0 {
		t.Fatalf("melee range not overridden: %v", got.Combat.MeleeRange)
	}
	// Everything the file is silent on keeps the default.
	def := Default()
	if got.Seed != def.Seed || got.ChunkEdge != def.ChunkEdge {
		t.Fatalf("defaults lost: seed=%d edge=%d", got.Seed, got.ChunkEdge)
	}
	if got.Combat.BaseMeleeDamage != def.Combat.BaseMeleeDamage {
		t.Fatalf("sibling field lost: %d", got.Combat.BaseMeleeDamage)
	}
}

func TestLoad_MissingFileReturnsDefaults(t *testing.T) {
	got, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if !os.IsNotExist(err) {
		t.Fatalf("expected not-exist error, got %v", err)
	}
	if got != Default() {
		t.Fatalf("missing file did not yield defaults")
	}
}

func TestLoad_MalformedYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tuning.yaml")
	if err := os.WriteFile(path, []byte("tick_rate_hz: [not a number"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Fatalf("malformed yaml accepted")
	}
}

func TestLoad_ShippedConfig(t *testing.T) {
	got, err := Load("../../../configs/tuning.yaml")
	if err != nil {
		t.Fatalf("load shipped tuning: %v", err)
	}
	if got.TickRateHz <= 0 || got.ChunkEdge <= 0 {
		t.Fatalf("shipped tuning has bad core values: %+v", got)
	}
	if got.Pathfinder.MaxExpansions <= 0 {
		t.Fatalf("shipped pathfinder budget unset")
	}
}
