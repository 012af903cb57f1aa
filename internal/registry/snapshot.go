// SPDX-License-Identifier: MIT
package registry

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
	"go.yaml.in/yaml/v3"

	"github.com/skaphos/grm/internal/names"
	"github.com/skaphos/grm/internal/pathutil"
)

const (
	// SnapshotAPIVersion is the current snapshot schema apiVersion.
	SnapshotAPIVersion = "skaphos.io/grm/v1"
	// SnapshotKind is the current snapshot schema kind.
	SnapshotKind = "RepoRegistry"
)

// document is the on-disk layout. Repos is kept as a node so mapping order,
// which is the display order, survives a round trip.
type document struct {
	APIVersion     string     `yaml:"apiVersion"`
	Kind           string     `yaml:"kind"`
	DefaultPlugins []string  `yaml:"default_plugins,omitempty"`
	Repos          yaml.Node `yaml:"repos"`
}

type entryDocument struct {
	Path    string   `yaml:"path"`
	Plugins []string `yaml:"plugins"`
	Enabled *bool    `yaml:"enabled,omitempty"`
}

// decodeSnapshot parses data into a state. Malformed entries are dropped and
// logged; a document that does not parse at all is an error.
func decodeSnapshot(data []byte, resolver *pathutil.Resolver, logger *zap.Logger) (state, error) {
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return state{}, err
	}
	if doc.APIVersion != "" && doc.APIVersion != SnapshotAPIVersion {
		return state{}, fmt.Errorf("unsupported snapshot apiVersion %q (expected %q)", doc.APIVersion, SnapshotAPIVersion)
	}
	if doc.Kind != "" && doc.Kind != SnapshotKind {
		return state{}, fmt.Errorf("unsupported snapshot kind %q (expected %q)", doc.Kind, SnapshotKind)
	}

	st := state{defaultPlugins: cleanPlugins(doc.DefaultPlugins)}
	repos := &doc.Repos
	switch repos.Kind {
	case 0:
		// repos key absent
		return st, nil
	case yaml.MappingNode:
	case yaml.ScalarNode:
		if repos.Tag == "!!null" {
			return st, nil
		}
		return state{}, errors.New("repos must be a mapping")
	default:
		return state{}, errors.New("repos must be a mapping")
	}

	for i := 0; i+1 < len(repos.Content); i += 2 {
		keyNode, valueNode := repos.Content[i], repos.Content[i+1]
		name := strings.TrimSpace(keyNode.Value)
		if keyNode.Kind != yaml.ScalarNode {
			logger.Warn("dropping registry entry with non-scalar name", zap.Int("line", keyNode.Line))
			continue
		}
		if err := names.Validate(name); err != nil {
			logger.Warn("dropping registry entry with invalid name", zap.String("repo", name), zap.Error(err))
			continue
		}
		var ed entryDocument
		if err := valueNode.Decode(&ed); err != nil {
			logger.Warn("dropping malformed registry entry", zap.String("repo", name), zap.Error(err))
			continue
		}
		if strings.TrimSpace(ed.Path) == "" {
			logger.Warn("dropping registry entry without path", zap.String("repo", name))
			continue
		}
		resolved, ok := resolver.Resolve(pathutil.Native(ed.Path))
		if !ok {
			logger.Warn("dropping registry entry with unresolvable path", zap.String("repo", name), zap.String("path", ed.Path))
			continue
		}
		if st.indexByName(name, -1) >= 0 {
			logger.Warn("dropping duplicate registry name", zap.String("repo", name))
			continue
		}
		if idx := st.indexByPath(resolved, -1); idx >= 0 {
			logger.Warn("dropping registry entry with duplicate path", zap.String("repo", name), zap.String("path", resolved), zap.String("existing", st.entries[idx].Name))
			continue
		}
		enabled := true
		if ed.Enabled != nil {
			enabled = *ed.Enabled
		}
		st.entries = append(st.entries, Entry{
			Name:    name,
			Path:    resolved,
			Plugins: cleanPlugins(ed.Plugins),
			Enabled: enabled,
		})
	}
	return st, nil
}

// encodeSnapshot renders st with entries in display order and paths in
// portable form.
func encodeSnapshot(st state) ([]byte, error) {
	repos := yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
	for _, e := range st.entries {
		enabled := e.Enabled
		plugins := e.Plugins
		if plugins == nil {
			plugins = []string{}
		}
		var value yaml.Node
		if err := value.Encode(entryDocument{
			Path:    pathutil.Portable(e.Path),
			Plugins: plugins,
			Enabled: &enabled,
		}); err != nil {
			return nil, err
		}
		repos.Content = append(repos.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: e.Name},
			&value,
		)
	}
	return yaml.Marshal(document{
		APIVersion:     SnapshotAPIVersion,
		Kind:           SnapshotKind,
		DefaultPlugins: st.defaultPlugins,
		Repos:          repos,
	})
}

// writeAtomic replaces path with data by writing a sibling temp file and
// renaming it over the target, so readers never observe a partial snapshot.
func writeAtomic(path string, data []byte) (err error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp.*")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()
	defer func() {
		if err != nil {
			_ = os.Remove(tmpPath)
		}
	}()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpPath, 0o644); err != nil {
		return err
	}
	return os.Rename(tmpPath, path)
}

func cleanPlugins(in []string) []string {
	out := make([]string, 0, len(in))
	for _, p := range in {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		out = append(out, p)
	}
	return out
}
