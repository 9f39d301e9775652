// aviation/registry.go
// Copyright(c) 2024-2026 loadmaster contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package aviation

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/Embraer145/LoadMaster-Ai-sub001/log"
	"github.com/Embraer145/LoadMaster-Ai-sub001/util"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/sync/errgroup"
)

// Registry resolves aircraft type codes to validated Configs. Templates
// come from the shipped resources plus any operator-provided directories;
// an operator template with the same name as a shipped one overrides it.
// Returned Configs are shared and must be treated as read-only.
type Registry struct {
	sources map[string]templateSource
	lg      *log.Logger

	// cache holds validated configs; the TTL bounds how stale an
	// operator-edited template on disk can get.
	cache *expirable.LRU[string, *Config]
}

type templateSource struct {
	path     string
	external bool
}

// NewRegistry scans the shipped aircraft templates and the given extra
// directories. Scanning only indexes filenames; templates are parsed and
// validated on first use.
func NewRegistry(templateDirs []string, lg *log.Logger) *Registry {
	r := &Registry{
		sources: make(map[string]templateSource),
		lg:      lg,
		cache:   expirable.NewLRU[string, *Config](16, nil, time.Hour),
	}

	err := util.WalkResources("aircraft", func(path string, d fs.DirEntry, filesystem fs.FS, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(path, ".json") {
			return nil
		}
		name := strings.TrimSuffix(filepath.Base(path), ".json")
		r.sources[name] = templateSource{path: path}
		return nil
	})
	if err != nil {
		// The shipped templates are part of the install; if they can't be
		// read nothing downstream will work.
		panic(err)
	}

	for _, dir := range templateDirs {
		entries, err := os.ReadDir(dir)
		if err != nil {
			lg.Errorf("%s: %v", dir, err)
			continue
		}
		for _, entry := range entries {
			if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
				continue
			}
			name := strings.TrimSuffix(entry.Name(), ".json")
			if _, ok := r.sources[name]; ok {
				lg.Infof("%s: %s overrides the built-in template", dir, name)
			}
			r.sources[name] = templateSource{path: filepath.Join(dir, entry.Name()), external: true}
		}
	}

	return r
}

// List returns the known aircraft type codes, sorted.
func (r *Registry) List() []string {
	return util.SortedMapKeys(r.sources)
}

// Aircraft returns the validated Config for an aircraft type code. A
// template that fails validation is reported in full; a registry never
// hands out a partially-valid Config.
func (r *Registry) Aircraft(name string) (*Config, error) {
	if cfg, ok := r.cache.Get(name); ok {
		return cfg, nil
	}

	src, ok := r.sources[name]
	if !ok {
		return nil, fmt.Errorf("%s: unknown aircraft type", name)
	}

	var contents []byte
	if src.external {
		var err error
		contents, err = os.ReadFile(src.path)
		if err != nil {
			return nil, err
		}
	} else {
		contents = util.LoadResourceBytes(src.path)
	}

	var e util.ErrorLogger
	util.CheckJSON[Config](contents, &e)

	cfg := &Config{}
	if !e.HaveErrors() {
		if err := util.UnmarshalJSONBytes(contents, cfg); err != nil {
			e.Error(err)
		}
	}
	if !e.HaveErrors() {
		cfg.PostDeserialize(&e)
	}
	if !e.HaveErrors() && cfg.Name != name {
		e.ErrorString("template file %s declares name %q", src.path, cfg.Name)
	}
	if e.HaveErrors() {
		return nil, fmt.Errorf("%s: invalid aircraft template:\n%s", src.path, e.String())
	}

	if r.lg != nil {
		r.lg.Infof("%s: loaded aircraft template from %s", name, src.path)
	}
	r.cache.Add(name, cfg)
	return cfg, nil
}

// LoadAll parses and validates every known template concurrently,
// returning the first failure. Used by -lint and at server startup so
// that broken templates surface immediately rather than mid-shift.
func (r *Registry) LoadAll() error {
	var g errgroup.Group
	for _, name := range r.List() {
		g.Go(func() error {
			_, err := r.Aircraft(name)
			return err
		})
	}
	return g.Wait()
}
