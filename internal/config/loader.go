package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"
)

type SourceKind string

const (
	SourceDefault SourceKind = "default"
	SourceFile    SourceKind = "file"
)

type Source struct {
	Kind   SourceKind
	Name   string // for defaults
	File   string
	Line   int
	Column int
}

type LoadResult struct {
	Config  *Config
	Sources map[string]Source // YAML-path -> last writer source (file only)
	Files   []string          // all loaded files, in load order
}

func DefaultConfigPath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(homeDir, ".config", "treetile", "config.yaml"), nil
}

// Load reads the merged configuration from the standard location and returns an
// effective config ready for use by the daemon.
func Load() (*Config, error) {
	res, err := LoadWithSources()
	if err != nil {
		return nil, err
	}
	return res.Config, nil
}

// LoadWithSources loads config and returns file-level sources for introspection.
func LoadWithSources() (*LoadResult, error) {
	path, err := DefaultConfigPath()
	if err != nil {
		return nil, err
	}
	return LoadFromPath(path)
}

// LoadFromPath loads path and every file it includes. A missing file yields
// the defaults.
func LoadFromPath(path string) (*LoadResult, error) {
	merged := &layer{sources: map[string]Source{}}

	if _, err := os.Stat(path); err == nil {
		l := &includeLoader{seen: make(map[string]bool)}
		fileLayer, err := l.load(path)
		if err != nil {
			return nil, err
		}
		merged.overlay(fileLayer)
	} else if !errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}

	cfg := BuildEffectiveConfig(merged.raw)
	if err := cfg.Validate(); err != nil {
		return nil, withSource(err, merged.sources)
	}

	return &LoadResult{
		Config:  cfg,
		Sources: merged.sources,
		Files:   merged.files,
	}, nil
}

// layer is the merged content of one file and everything it includes.
type layer struct {
	raw     RawConfig
	sources map[string]Source
	files   []string
}

// overlay applies top over l; top's values and sources win.
func (l *layer) overlay(top *layer) {
	l.raw = l.raw.merge(top.raw)
	for p, src := range top.sources {
		l.sources[p] = src
	}
	l.files = append(l.files, top.files...)
}

// includeLoader follows include directives depth-first. A file reached
// twice through different includes is merged once; a file that includes
// itself through the current chain is an error.
type includeLoader struct {
	seen  map[string]bool
	chain []string
}

func (l *includeLoader) load(path string) (*layer, error) {
	file := canonicalPath(path)
	if slices.Contains(l.chain, file) {
		return nil, fmt.Errorf("include cycle detected: %s -> %s", strings.Join(l.chain, " -> "), file)
	}
	out := &layer{sources: map[string]Source{}}
	if l.seen[file] {
		return out, nil
	}
	l.seen[file] = true

	data, err := os.ReadFile(file)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to read: %w", file, err)
	}
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%s: failed to parse yaml: %w", file, err)
	}
	var raw RawConfig
	if err := decodeStrict(data, &raw); err != nil {
		return nil, fmt.Errorf("%s: %w", file, err)
	}
	sources := scanSources(&doc, file)

	l.chain = append(l.chain, file)
	for i, inc := range raw.Include {
		at := includeSource(sources, i)
		paths, err := expandInclude(file, inc)
		if err != nil {
			return nil, fmt.Errorf("%s:%d:%d: include %q: %w", at.File, at.Line, at.Column, inc, err)
		}
		for _, p := range paths {
			included, err := l.load(p)
			if err != nil {
				return nil, err
			}
			out.overlay(included)
		}
	}
	l.chain = l.chain[:len(l.chain)-1]

	// The including file is applied last so it overrides its includes.
	out.overlay(&layer{raw: raw, sources: sources, files: []string{file}})
	return out, nil
}

func includeSource(sources map[string]Source, i int) Source {
	if src, ok := sources[fmt.Sprintf("include[%d]", i)]; ok {
		return src
	}
	return sources["include"]
}

func decodeStrict(data []byte, out any) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(out); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// canonicalPath resolves path to an absolute, symlink-free form. Resolution
// failures fall back to the absolute path so the read reports the error.
func canonicalPath(path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		return path
	}
	if resolved, err := filepath.EvalSymlinks(abs); err == nil {
		return resolved
	}
	return abs
}

// expandInclude resolves an include relative to the including file. A
// directory expands to its *.yaml and *.yml files in name order.
func expandInclude(from, include string) ([]string, error) {
	if include == "" {
		return nil, errors.New("path is empty")
	}
	if include == "~" || strings.HasPrefix(include, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, err
		}
		include = filepath.Join(home, strings.TrimPrefix(include, "~"))
	}
	if !filepath.IsAbs(include) {
		include = filepath.Join(filepath.Dir(from), include)
	}

	info, err := os.Stat(include)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return []string{include}, nil
	}

	entries, err := os.ReadDir(include)
	if err != nil {
		return nil, err
	}
	var files []string
	for _, ent := range entries {
		switch strings.ToLower(filepath.Ext(ent.Name())) {
		case ".yaml", ".yml":
			if !ent.IsDir() {
				files = append(files, filepath.Join(include, ent.Name()))
			}
		}
	}
	slices.Sort(files)
	return files, nil
}

// scanSources maps every dotted key path in doc to the position of its
// value. Sequence elements are recorded as path[i].
func scanSources(doc *yaml.Node, file string) map[string]Source {
	out := make(map[string]Source)
	node := doc
	if node.Kind == yaml.DocumentNode && len(node.Content) > 0 {
		node = node.Content[0]
	}

	var walk func(n *yaml.Node, prefix string)
	walk = func(n *yaml.Node, prefix string) {
		at := func(n *yaml.Node) Source {
			return Source{Kind: SourceFile, File: file, Line: n.Line, Column: n.Column}
		}
		switch n.Kind {
		case yaml.MappingNode:
			for i := 0; i+1 < len(n.Content); i += 2 {
				key, val := n.Content[i].Value, n.Content[i+1]
				if prefix != "" {
					key = prefix + "." + key
				}
				out[key] = at(val)
				walk(val, key)
			}
		case yaml.SequenceNode:
			for i, item := range n.Content {
				out[fmt.Sprintf("%s[%d]", prefix, i)] = at(item)
			}
		}
	}
	walk(node, "")
	return out
}

// withSource attaches the file position of a failing key to a validation
// error.
func withSource(err error, sources map[string]Source) error {
	var verr *ValidationError
	if !errors.As(err, &verr) || verr.Path == "" {
		return err
	}
	if src, ok := sources[verr.Path]; ok {
		verr.Source = src
	}
	return err
}
