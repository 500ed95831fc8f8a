// Package migration upgrades taxonomy documents from the legacy flat/string
// method format to the structured ideal format.
package migration

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func legacyMethod() map[string]any {
	return map[string]any{
		"name":              "Conv-BN Fusion",
		"speedup":           "1.3×",
		"compression_ratio": 1.0,
		"accuracy_impact":   "zero",
		"architecture":      "ResNet",
		"paper_link":        "https://arxiv.org/abs/1502.03167",
		"effectiveness":     "high",
	}
}

func TestLegacyReasons(t *testing.T) {
	t.Run("legacy node", func(t *testing.T) {
		reasons := LegacyReasons(legacyMethod())

		assert.Contains(t, reasons, "missing techniques")
		assert.Contains(t, reasons, "architecture is not an object")
		assert.True(t, IsLegacy(legacyMethod()))
	})

	t.Run("migrated node is ideal", func(t *testing.T) {
		migrated := MigrateNode(legacyMethod(), "n1")

		assert.Empty(t, LegacyReasons(migrated))
		assert.False(t, IsLegacy(migrated))
	})
}

func TestMigrateNode(t *testing.T) {
	t.Run("upgrades legacy node", func(t *testing.T) {
		out := MigrateNode(legacyMethod(), "n1")

		assert.Equal(t, []any{"fuse_layers"}, out["techniques"])
		assert.Equal(t, map[string]any{"family": "Unknown", "variant": "ResNet"}, out["architecture"])
		assert.Equal(t, "Unknown", out["architecture_family"])
		assert.Equal(t, "Conv-BN Fusion", out["method_name"])
		assert.Equal(t, "high", out["effectiveness"])

		perf := out["performance"].(map[string]any)
		assert.Equal(t, 1.3, perf["latency_speedup"])
		assert.Equal(t, 1.0, perf["accuracy_retention"])

		paper := out["paper"].(map[string]any)
		assert.Equal(t, "1502.03167", paper["arxiv_id"])
	})

	t.Run("does not mutate input", func(t *testing.T) {
		in := legacyMethod()

		MigrateNode(in, "n1")

		assert.Equal(t, legacyMethod(), in)
	})

	t.Run("idempotent", func(t *testing.T) {
		once := MigrateNode(legacyMethod(), "n1")
		twice := MigrateNode(once, "n1")

		assert.Equal(t, once, twice)
	})

	t.Run("ideal node is a no-op", func(t *testing.T) {
		ideal := map[string]any{
			"name":         "Custom",
			"techniques":   []any{"fuse_layers"},
			"performance":  map[string]any{"latency_speedup": 1.2, "compression_ratio": 1.0, "accuracy_retention": 1.0, "memory_reduction": 0.0},
			"validation":   map[string]any{"confidence": 0.8, "sample_count": 3.0, "validators": 1.0, "last_validated": nil, "validation_method": "benchmark"},
			"architecture": map[string]any{"family": "CNN", "variant": "ResNet"},
			"paper":        map[string]any{"title": "", "authors": []any{}, "venue": "", "year": 0.0, "arxiv_id": "", "url": ""},

			"architecture_family": "CNN",
			"extra":               "kept",
		}
		m := New(nil)

		out := m.MigrateNode(ideal, "ideal")

		assert.Equal(t, ideal, out)
		assert.Empty(t, m.Warnings())
	})

	t.Run("unknown name gets empty techniques", func(t *testing.T) {
		out := MigrateNode(map[string]any{"name": "Mystery"}, "")

		assert.Equal(t, []any{}, out["techniques"])
	})

	t.Run("method_name fills name", func(t *testing.T) {
		out := MigrateNode(map[string]any{"method_name": "Layer Fusion"}, "")

		assert.Equal(t, "Layer Fusion", out["name"])
		assert.Equal(t, []any{"fuse_layers"}, out["techniques"])
	})

	t.Run("nil node", func(t *testing.T) {
		assert.Nil(t, MigrateNode(nil, ""))
	})

	t.Run("warning logged and collected", func(t *testing.T) {
		core, logs := observer.New(zap.WarnLevel)
		m := New(zap.New(core))

		m.MigrateNode(legacyMethod(), "CNN/ResNet/fusion/layer_fusion/methods[0]")

		warnings := m.Warnings()
		require.Len(t, warnings, 1)
		assert.Equal(t, "CNN/ResNet/fusion/layer_fusion/methods[0]", warnings[0].NodeID)
		assert.NotEmpty(t, warnings[0].Reasons)
		assert.Contains(t, warnings[0].String(), "legacy schema format detected")

		require.Equal(t, 1, logs.Len())
		entry := logs.All()[0]
		assert.Equal(t, "CNN/ResNet/fusion/layer_fusion/methods[0]", entry.ContextMap()["node"])
	})
}
