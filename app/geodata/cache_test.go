package geodata

import (
	"os"
	"path/filepath"
	"testing"
)

func writePlaceFile(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write place file: %v", err)
	}
}

func TestCache_Run_LoadsDefinitions(t *testing.T) {
	dir := t.TempDir()
	writePlaceFile(t, dir, "lisbon.yml", "name: Lisbon\ncountry: Portugal\n")
	writePlaceFile(t, dir, "kyoto.yaml", "name: Kyoto\ncountry: Japan\nwikipedia_title: Kyoto\n")

	cache := NewCache(dir)
	if err := cache.Run(); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if cache.GetDefinitionCount() != 2 {
		t.Errorf("expected 2 definitions, got %d", cache.GetDefinitionCount())
	}

	lisbon, err := cache.GetDefinition("lisbon")
	if err != nil {
		t.Fatalf("GetDefinition(lisbon) error = %v", err)
	}
	if lisbon.Name != "Lisbon" || lisbon.Country != "Portugal" {
		t.Errorf("unexpected lisbon definition: %+v", lisbon)
	}
	if !lisbon.IsEnabled() {
		t.Error("definitions without an enabled field should default to enabled")
	}

	kyoto, err := cache.GetDefinition("kyoto")
	if err != nil {
		t.Fatalf("GetDefinition(kyoto) error = %v", err)
	}
	if kyoto.WikipediaTitle != "Kyoto" {
		t.Errorf("expected wikipedia title override, got '%s'", kyoto.WikipediaTitle)
	}
}

func TestCache_Run_MissingDirectory(t *testing.T) {
	cache := NewCache(filepath.Join(t.TempDir(), "does-not-exist"))
	if err := cache.Run(); err != nil {
		t.Errorf("Run() should tolerate a missing places directory, got %v", err)
	}
	if cache.GetDefinitionCount() != 0 {
		t.Errorf("expected empty cache, got %d definitions", cache.GetDefinitionCount())
	}
}

func TestCache_Run_InvalidDefinition(t *testing.T) {
	dir := t.TempDir()
	writePlaceFile(t, dir, "broken.yml", "country: Nowhere\n")

	cache := NewCache(dir)
	if err := cache.Run(); err == nil {
		t.Error("Run() should fail on a definition without a name")
	}
}

func TestCache_GetDefinitions_Sorted(t *testing.T) {
	dir := t.TempDir()
	writePlaceFile(t, dir, "zagreb.yml", "name: Zagreb\ncountry: Croatia\n")
	writePlaceFile(t, dir, "ankara.yml", "name: Ankara\ncountry: Turkey\n")

	cache := NewCache(dir)
	if err := cache.Run(); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	definitions := cache.GetDefinitions()
	if len(definitions) != 2 {
		t.Fatalf("expected 2 definitions, got %d", len(definitions))
	}
	if definitions[0].Slug != "ankara" || definitions[1].Slug != "zagreb" {
		t.Errorf("expected slug-sorted definitions, got %s, %s", definitions[0].Slug, definitions[1].Slug)
	}
}

func TestCache_DisabledDefinition(t *testing.T) {
	dir := t.TempDir()
	writePlaceFile(t, dir, "atlantis.yml", "name: Atlantis\ncountry: Ocean\nenabled: false\n")

	cache := NewCache(dir)
	if err := cache.Run(); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	atlantis, err := cache.GetDefinition("atlantis")
	if err != nil {
		t.Fatalf("GetDefinition(atlantis) error = %v", err)
	}
	if atlantis.IsEnabled() {
		t.Error("explicitly disabled definition should not be enabled")
	}
}
