// Copyright The devlambda Authors.
// SPDX-License-Identifier: Apache-2.0

package function

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testDefaults = Defaults{Handler: "index.handler", MaxMemory: 128, Timeout: 3}

func writeFile(t *testing.T, path, content string) {
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestSplitHandler(t *testing.T) {
	tests := []struct {
		handler string
		module  string
		export  string
	}{
		{"index.handler", "index", "handler"},
		{"index.handler.extra", "index", "handler"},
		{"a.b.c.d", "a", "b"},
		{"index", "index", ""},
		{"", "", ""},
	}
	for _, tt := range tests {
		module, export := SplitHandler(tt.handler)
		assert.Equal(t, tt.module, module, tt.handler)
		assert.Equal(t, tt.export, export, tt.handler)
	}

	def := Definition{Handler: "index.handler.extra"}
	assert.Equal(t, "index", def.ModulePart())
	assert.Equal(t, "handler", def.ExportPart())
}

func TestReloadAppliesDefaults(t *testing.T) {
	base := t.TempDir()
	writeFile(t, filepath.Join(base, "plain", "index.js"), "")
	writeFile(t, filepath.Join(base, "custom", "config.json"), `{"handler":"main.run","maxMemory":256,"timeout":10}`)
	writeFile(t, filepath.Join(base, "partial", "config.json"), `{"timeout":7}`)
	writeFile(t, filepath.Join(base, "broken", "config.json"), `{not json`)
	writeFile(t, filepath.Join(base, "yamled", "config.yaml"), "handler: app.go\nmaxMemory: 64\n")
	writeFile(t, filepath.Join(base, "notadir.txt"), "")

	r := NewRegistry(base, testDefaults)
	require.NoError(t, r.Reload())

	assert.Equal(t, []string{"broken", "custom", "partial", "plain", "yamled"}, r.Names())

	plain, err := r.Get("plain")
	require.NoError(t, err)
	assert.Equal(t, Definition{Name: "plain", Dir: filepath.Join(base, "plain"), Handler: "index.handler", MaxMemory: 128, Timeout: 3}, plain)

	custom, err := r.Get("custom")
	require.NoError(t, err)
	assert.Equal(t, "main.run", custom.Handler)
	assert.Equal(t, 256, custom.MaxMemory)
	assert.Equal(t, 10, custom.Timeout)

	partial, err := r.Get("partial")
	require.NoError(t, err)
	assert.Equal(t, "index.handler", partial.Handler)
	assert.Equal(t, 7, partial.Timeout)

	broken, err := r.Get("broken")
	require.NoError(t, err)
	assert.Equal(t, "index.handler", broken.Handler)

	yamled, err := r.Get("yamled")
	require.NoError(t, err)
	assert.Equal(t, "app.go", yamled.Handler)
	assert.Equal(t, 64, yamled.MaxMemory)
	assert.Equal(t, 3, yamled.Timeout)
}

func TestListOrdersDefinitionsByName(t *testing.T) {
	base := t.TempDir()
	writeFile(t, filepath.Join(base, "zeta", "index.js"), "")
	writeFile(t, filepath.Join(base, "alpha", "config.json"), `{"timeout":9}`)

	r := NewRegistry(base, testDefaults)
	assert.Empty(t, r.List())
	require.NoError(t, r.Reload())

	definitions := r.List()
	require.Len(t, definitions, 2)
	assert.Equal(t, "alpha", definitions[0].Name)
	assert.Equal(t, 9, definitions[0].Timeout)
	assert.Equal(t, "zeta", definitions[1].Name)
	assert.Equal(t, 3, definitions[1].Timeout)
}

func TestReloadDropsRemovedFunctions(t *testing.T) {
	base := t.TempDir()
	writeFile(t, filepath.Join(base, "a", "index.js"), "")
	writeFile(t, filepath.Join(base, "b", "index.js"), "")

	r := NewRegistry(base, testDefaults)
	require.NoError(t, r.Reload())
	require.Len(t, r.Names(), 2)

	require.NoError(t, os.RemoveAll(filepath.Join(base, "b")))
	require.NoError(t, r.Reload())

	assert.Equal(t, []string{"a"}, r.Names())
	_, err := r.Get("b")
	assert.ErrorIs(t, err, ErrFunctionNotFound)
}

func TestReloadMissingBaseDir(t *testing.T) {
	r := NewRegistry(filepath.Join(t.TempDir(), "missing"), testDefaults)
	assert.Error(t, r.Reload())
}
