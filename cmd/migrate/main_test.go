// Package main is the batch migration CLI. It upgrades a taxonomy JSON file
// to the structured method format in place or into a new file. It backs up
// the original first and prints an audit report.
package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const legacyTaxonomy = `{"CNN":{"Classification":{"ResNet":{
  "model_characteristics":{"architecture_type":"cnn"},
  "optimization_methods":{"fusion":{"methods":["Conv-BN Fusion"]}}
}}}}`

const unknownMethodTaxonomy = `{"CNN":{"Classification":{"ResNet":{
  "optimization_methods":{"fusion":{"layer_fusion":{"methods":["Zzz"]}}}
}}}}`

var pinned = time.Date(2024, 3, 5, 14, 30, 0, 0, time.UTC)

func writeInput(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "base_tree.json")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func runCLI(args ...string) (int, string, string) {
	var stdout, stderr bytes.Buffer
	j := &job{stdout: &stdout, stderr: &stderr, now: func() time.Time { return pinned }, log: zap.NewNop()}
	code := j.run(args)
	return code, stdout.String(), stderr.String()
}

func readJSON(t *testing.T, path string) map[string]any {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var doc map[string]any
	require.NoError(t, json.Unmarshal(data, &doc))
	return doc
}

func firstMethod(t *testing.T, doc map[string]any) map[string]any {
	t.Helper()
	model := doc["CNN"].(map[string]any)["Classification"].(map[string]any)["ResNet"].(map[string]any)
	fusion := model["optimization_methods"].(map[string]any)["fusion"].(map[string]any)
	return fusion["layer_fusion"].(map[string]any)["methods"].([]any)[0].(map[string]any)
}

func TestMigrateInPlace(t *testing.T) {
	input := writeInput(t, legacyTaxonomy)

	code, stdout, stderr := runCLI(input)

	assert.Equal(t, 0, code, stderr)
	assert.Contains(t, stdout, "MIGRATION REPORT")
	assert.Contains(t, stdout, "Validation Status: PASSED")
	assert.Contains(t, stdout, "Methods before migration: 1 (1 legacy)")
	assert.Contains(t, stderr, "Original taxonomy validation failed")

	t.Run("backup holds the original bytes", func(t *testing.T) {
		backup := filepath.Join(filepath.Dir(input), "backups", "base_tree_backup_20240305_143000.json")
		data, err := os.ReadFile(backup)
		require.NoError(t, err)
		assert.Equal(t, legacyTaxonomy, string(data))
		assert.Contains(t, stdout, "Backup created: "+backup)
	})

	t.Run("input is overwritten with the migrated taxonomy", func(t *testing.T) {
		method := firstMethod(t, readJSON(t, input))
		assert.Equal(t, "Conv-BN Fusion", method["name"])
		assert.Equal(t, []any{"fuse_layers"}, method["techniques"])
	})

	t.Run("output is indented with two spaces", func(t *testing.T) {
		data, err := os.ReadFile(input)
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(string(data), "{\n  \"CNN\": {\n    \"Classification\""))
	})

	t.Run("running again is a no-op", func(t *testing.T) {
		before, err := os.ReadFile(input)
		require.NoError(t, err)

		code, _, _ := runCLI(input, "--no-backup")

		assert.Equal(t, 0, code)
		after, err := os.ReadFile(input)
		require.NoError(t, err)
		assert.Equal(t, string(before), string(after))
	})
}

func TestMigrateOptions(t *testing.T) {
	t.Run("output file leaves the input alone", func(t *testing.T) {
		input := writeInput(t, legacyTaxonomy)
		output := filepath.Join(t.TempDir(), "migrated.json")

		code, _, _ := runCLI(input, "-o", output, "--no-backup")

		assert.Equal(t, 0, code)
		data, err := os.ReadFile(input)
		require.NoError(t, err)
		assert.Equal(t, legacyTaxonomy, string(data))
		assert.Equal(t, "Conv-BN Fusion", firstMethod(t, readJSON(t, output))["method_name"])
		assert.NoDirExists(t, filepath.Join(filepath.Dir(input), "backups"))
	})

	t.Run("dry run writes nothing", func(t *testing.T) {
		input := writeInput(t, legacyTaxonomy)

		code, stdout, _ := runCLI(input, "--dry-run")

		assert.Equal(t, 0, code)
		assert.Contains(t, stdout, "[DRY RUN] No changes written to disk")
		data, err := os.ReadFile(input)
		require.NoError(t, err)
		assert.Equal(t, legacyTaxonomy, string(data))
		assert.NoDirExists(t, filepath.Join(filepath.Dir(input), "backups"))
	})

	t.Run("absolute backup dir", func(t *testing.T) {
		input := writeInput(t, legacyTaxonomy)
		dir := filepath.Join(t.TempDir(), "snapshots")

		code, _, _ := runCLI(input, "--backup-dir", dir)

		assert.Equal(t, 0, code)
		assert.FileExists(t, filepath.Join(dir, "base_tree_backup_20240305_143000.json"))
	})

	t.Run("quiet prints nothing on success", func(t *testing.T) {
		input := writeInput(t, legacyTaxonomy)

		code, stdout, _ := runCLI(input, "--quiet", "--no-backup")

		assert.Equal(t, 0, code)
		assert.Empty(t, stdout)
	})

	t.Run("remaining audit errors exit 1 but still write", func(t *testing.T) {
		input := writeInput(t, unknownMethodTaxonomy)

		code, stdout, _ := runCLI(input, "--no-backup")

		assert.Equal(t, 1, code)
		assert.Contains(t, stdout, "Validation Status: FAILED")
		assert.Contains(t, stdout, "missing or empty 'techniques' field")
		assert.Contains(t, stdout, "validation errors remain")
		assert.Equal(t, []any{}, firstMethod(t, readJSON(t, input))["techniques"])
	})
}

func TestValidateOnly(t *testing.T) {
	t.Run("legacy file fails", func(t *testing.T) {
		input := writeInput(t, legacyTaxonomy)

		code, stdout, _ := runCLI(input, "--validate-only")

		assert.Equal(t, 1, code)
		assert.Contains(t, stdout, "Taxonomy has 1 validation errors:")
		assert.Contains(t, stdout, `legacy string method "Conv-BN Fusion" was not migrated`)
		data, err := os.ReadFile(input)
		require.NoError(t, err)
		assert.Equal(t, legacyTaxonomy, string(data))
	})

	t.Run("migrated file passes", func(t *testing.T) {
		input := writeInput(t, legacyTaxonomy)
		code, _, _ := runCLI(input, "--no-backup", "--quiet")
		require.Equal(t, 0, code)

		code, stdout, _ := runCLI(input, "--validate-only")

		assert.Equal(t, 0, code)
		assert.Contains(t, stdout, "Taxonomy already follows the structured method format")
	})

	t.Run("error list is capped", func(t *testing.T) {
		var methods []string
		for i := 0; i < 25; i++ {
			methods = append(methods, `"M`+strings.Repeat("x", i)+`"`)
		}
		input := writeInput(t, `{"CNN":{"C":{"R":{"optimization_methods":{"fusion":{"layer_fusion":{"methods":[`+
			strings.Join(methods, ",")+`]}}}}}}}`)

		code, stdout, _ := runCLI(input, "--validate-only")

		assert.Equal(t, 1, code)
		assert.Contains(t, stdout, "Taxonomy has 25 validation errors:")
		assert.Equal(t, 20, strings.Count(stdout, "\n  - "))
		assert.Contains(t, stdout, "  ... and 5 more errors")
	})
}

func TestInputErrors(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		code, _, stderr := runCLI(filepath.Join(t.TempDir(), "absent.json"))

		assert.Equal(t, 1, code)
		assert.Contains(t, stderr, "Input file not found")
	})

	t.Run("malformed JSON reports the position", func(t *testing.T) {
		input := writeInput(t, "{\n  \"CNN\": ,\n}")

		code, _, stderr := runCLI(input)

		assert.Equal(t, 1, code)
		assert.Contains(t, stderr, "Invalid JSON in input file")
		assert.Contains(t, stderr, "line 2, column 10")
	})

	t.Run("too many arguments", func(t *testing.T) {
		code, _, stderr := runCLI("a.json", "b.json")

		assert.Equal(t, 1, code)
		assert.Contains(t, stderr, "accepts at most 1 arg")
	})
}
