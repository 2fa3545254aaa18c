// Copyright The devlambda Authors.
// SPDX-License-Identifier: Apache-2.0

package function

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	log "github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// ErrFunctionNotFound is returned when no definition exists for a name.
var ErrFunctionNotFound = errors.New("function not found")

var configFileNames = []string{"config.json", "config.yaml", "config.yml"}

// Defaults apply to every field a function's config file leaves unset.
type Defaults struct {
	Handler   string
	MaxMemory int
	Timeout   int
}

type fileConfig struct {
	Handler   string `json:"handler" yaml:"handler"`
	MaxMemory int    `json:"maxMemory" yaml:"maxMemory"`
	Timeout   int    `json:"timeout" yaml:"timeout"`
}

// Registry maps function names to definitions found under a base directory.
// Each direct subdirectory is one function. Reload replaces the whole
// snapshot; readers never see a partially scanned tree.
type Registry struct {
	baseDir  string
	defaults Defaults

	mu          sync.RWMutex
	definitions map[string]Definition
}

func NewRegistry(baseDir string, defaults Defaults) *Registry {
	return &Registry{
		baseDir:     baseDir,
		defaults:    defaults,
		definitions: make(map[string]Definition),
	}
}

// BaseDir returns the scanned directory.
func (r *Registry) BaseDir() string {
	return r.baseDir
}

// Reload rescans the base directory.
func (r *Registry) Reload() error {
	baseDir, err := filepath.Abs(r.baseDir)
	if err != nil {
		return err
	}

	entries, err := os.ReadDir(baseDir)
	if err != nil {
		return fmt.Errorf("failed to read function base dir %s: %w", baseDir, err)
	}

	definitions := make(map[string]Definition, len(entries))
	for _, entry := range entries {
		dirPath := filepath.Join(baseDir, entry.Name())
		if stat, err := os.Stat(dirPath); err != nil || !stat.IsDir() {
			continue
		}
		definitions[entry.Name()] = r.load(entry.Name(), dirPath)
	}

	r.mu.Lock()
	r.definitions = definitions
	r.mu.Unlock()

	log.WithField("count", len(definitions)).Infof("Loaded functions from %s", baseDir)
	return nil
}

func (r *Registry) load(name, dirPath string) Definition {
	def := Definition{
		Name:      name,
		Dir:       dirPath,
		Handler:   r.defaults.Handler,
		MaxMemory: r.defaults.MaxMemory,
		Timeout:   r.defaults.Timeout,
	}

	cfg, err := readConfig(dirPath)
	if err != nil {
		log.WithError(err).WithField("function", name).Warn("Ignoring function config")
		return def
	}
	if cfg == nil {
		return def
	}

	if cfg.Handler != "" {
		def.Handler = cfg.Handler
	}
	if cfg.MaxMemory > 0 {
		def.MaxMemory = cfg.MaxMemory
	}
	if cfg.Timeout > 0 {
		def.Timeout = cfg.Timeout
	}
	return def
}

// readConfig returns nil, nil when the directory holds no config file.
func readConfig(dirPath string) (*fileConfig, error) {
	for _, fileName := range configFileNames {
		content, err := os.ReadFile(filepath.Join(dirPath, fileName))
		if errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, err
		}

		cfg := &fileConfig{}
		if filepath.Ext(fileName) == ".json" {
			err = json.Unmarshal(content, cfg)
		} else {
			err = yaml.Unmarshal(content, cfg)
		}
		if err != nil {
			return nil, fmt.Errorf("invalid %s: %w", fileName, err)
		}
		return cfg, nil
	}
	return nil, nil
}

// Get returns the definition registered under name.
func (r *Registry) Get(name string) (Definition, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	def, ok := r.definitions[name]
	if !ok {
		return Definition{}, fmt.Errorf("%w: %s", ErrFunctionNotFound, name)
	}
	return def, nil
}

// Names returns the registered function names in lexical order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.definitions))
	for name := range r.definitions {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// List returns every definition, ordered by name.
func (r *Registry) List() []Definition {
	r.mu.RLock()
	defer r.mu.RUnlock()

	definitions := make([]Definition, 0, len(r.definitions))
	for _, def := range r.definitions {
		definitions = append(definitions, def)
	}
	sort.Slice(definitions, func(i, j int) bool {
		return definitions[i].Name < definitions[j].Name
	})
	return definitions
}
