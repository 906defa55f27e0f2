package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func writeConfigFile(t *testing.T, directory, name, content string) string {
	t.Helper()
	path := filepath.Join(directory, name)
	if writeError := os.WriteFile(path, []byte(content), 0o600); writeError != nil {
		t.Fatalf("expected test configuration write to succeed, got %v", writeError)
	}
	return path
}

func TestLoadApplicationConfigurationReadsLocalFile(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	workingDirectory := t.TempDir()
	writeConfigFile(t, workingDirectory, ".wdtree.yaml", `
query:
  endpoint: https://sparql.example.org
  languages: [fr, en]
  claims: [P571, P31]
tree:
  format: xml
  labels: true
table:
  format: json
  details: true
`)

	configuration, loadError := LoadApplicationConfiguration(LoadOptions{WorkingDirectory: workingDirectory})
	if loadError != nil {
		t.Fatalf("expected configuration to load, got %v", loadError)
	}
	if configuration.Query.Endpoint != "https://sparql.example.org" {
		t.Fatalf("unexpected endpoint: %s", configuration.Query.Endpoint)
	}
	if difference := cmp.Diff([]string{"fr", "en"}, configuration.Query.Languages); difference != "" {
		t.Fatalf("unexpected languages (-want +got):\n%s", difference)
	}
	if configuration.Tree.Format != "xml" {
		t.Fatalf("unexpected tree format: %s", configuration.Tree.Format)
	}
	if configuration.Tree.Labels == nil || !*configuration.Tree.Labels {
		t.Fatal("expected tree labels to be enabled")
	}
	if configuration.Table.Format != "json" {
		t.Fatalf("unexpected table format: %s", configuration.Table.Format)
	}
	if configuration.Table.Labels != nil {
		t.Fatal("expected unset table labels to stay nil")
	}
	if configuration.Table.Details == nil || !*configuration.Table.Details {
		t.Fatal("expected table details to be enabled")
	}
}

func TestLoadApplicationConfigurationExplicitPathOverridesDefault(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	workingDirectory := t.TempDir()
	writeConfigFile(t, workingDirectory, ".wdtree.yaml", "tree:\n  format: raw\n")
	explicitPath := writeConfigFile(t, workingDirectory, "override.yaml", "tree:\n  format: xml\n")

	configuration, loadError := LoadApplicationConfiguration(LoadOptions{
		WorkingDirectory: workingDirectory,
		ExplicitFilePath: explicitPath,
	})
	if loadError != nil {
		t.Fatalf("expected configuration to load, got %v", loadError)
	}
	if configuration.Tree.Format != "xml" {
		t.Fatalf("expected explicit file to win, got %s", configuration.Tree.Format)
	}
}

func TestLoadApplicationConfigurationMissingFileIsNotAnError(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	configuration, loadError := LoadApplicationConfiguration(LoadOptions{WorkingDirectory: t.TempDir()})
	if loadError != nil {
		t.Fatalf("expected missing configuration to load as defaults, got %v", loadError)
	}
	if configuration.Query.Endpoint != "" {
		t.Fatalf("expected zero configuration, got endpoint %s", configuration.Query.Endpoint)
	}
}

func TestMergeOverlaysOnlySetFields(t *testing.T) {
	t.Parallel()
	enabled := true
	base := ApplicationConfiguration{
		Query: QueryConfiguration{Endpoint: "https://base.example.org", Languages: []string{"en"}},
		Tree:  TreeCommandConfiguration{Format: "json"},
	}
	override := ApplicationConfiguration{
		Query: QueryConfiguration{Languages: []string{"fr"}},
		Tree:  TreeCommandConfiguration{Labels: &enabled},
	}
	merged := base.Merge(override)
	if merged.Query.Endpoint != "https://base.example.org" {
		t.Fatalf("expected base endpoint to survive, got %s", merged.Query.Endpoint)
	}
	if difference := cmp.Diff([]string{"fr"}, merged.Query.Languages); difference != "" {
		t.Fatalf("expected override languages (-want +got):\n%s", difference)
	}
	if merged.Tree.Format != "json" {
		t.Fatalf("expected base format to survive, got %s", merged.Tree.Format)
	}
	if merged.Tree.Labels == nil || !*merged.Tree.Labels {
		t.Fatal("expected override labels to apply")
	}
	*override.Tree.Labels = false
	if !*merged.Tree.Labels {
		t.Fatal("expected merged booleans to be cloned, not shared")
	}
}

func TestInitializeConfigurationRefusesToOverwrite(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	workingDirectory := t.TempDir()
	firstPath, firstError := InitializeConfiguration(InitOptions{WorkingDirectory: workingDirectory})
	if firstError != nil {
		t.Fatalf("expected initialization to succeed, got %v", firstError)
	}
	if _, statError := os.Stat(firstPath); statError != nil {
		t.Fatalf("expected configuration file to exist, got %v", statError)
	}
	if _, secondError := InitializeConfiguration(InitOptions{WorkingDirectory: workingDirectory}); secondError == nil {
		t.Fatal("expected a second initialization without force to fail")
	}
	if _, forcedError := InitializeConfiguration(InitOptions{WorkingDirectory: workingDirectory, Force: true}); forcedError != nil {
		t.Fatalf("expected forced initialization to succeed, got %v", forcedError)
	}

	configuration, loadError := LoadApplicationConfiguration(LoadOptions{WorkingDirectory: workingDirectory})
	if loadError != nil {
		t.Fatalf("expected the written template to load, got %v", loadError)
	}
	if len(configuration.Query.Hierarchy) != 2 {
		t.Fatalf("expected the default hierarchy properties, got %v", configuration.Query.Hierarchy)
	}
}
