package units

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/comroid-git/clmath/pkg/diagnostics"
	"github.com/comroid-git/clmath/pkg/parser"
)

//go:embed catalogs
var embedded embed.FS

// DefaultCatalogs names the catalogs shipped with the binary.
var DefaultCatalogs = []string{"electric", "time"}

// Bundle is the YAML form of a catalog.
type Bundle struct {
	Name  string       `yaml:"name" json:"name"`
	Units []BundleUnit `yaml:"units" json:"units"`
}

// BundleUnit is one unit of a Bundle.
type BundleUnit struct {
	Symbol    string   `yaml:"symbol" json:"symbol"`
	Name      string   `yaml:"name" json:"name"`
	Relations []string `yaml:"relations,omitempty" json:"relations,omitempty"`
}

// LoadDefaults installs the embedded catalogs into r.
func LoadDefaults(r *Registry) error {
	sub, err := fs.Sub(embedded, "catalogs")
	if err != nil {
		return err
	}
	return LoadFS(r, sub)
}

// LoadDir installs every catalog found in dir. A missing directory is not an error.
func LoadDir(r *Registry, dir string) error {
	if _, err := os.Stat(dir); errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return LoadFS(r, os.DirFS(dir))
}

// catalogSource defers building a catalog so that catalogs referencing each other can be
// loaded in dependency order.
type catalogSource struct {
	name  string
	build func(*Builder) error
}

// LoadFS installs catalogs from fsys. Each subdirectory is a catalog of "<symbol>.unit" files;
// each "<catalog>.yaml" file is a Bundle.
func LoadFS(r *Registry, fsys fs.FS) error {
	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return errorf(diagnostics.EIO, "read unit catalogs: %v", err)
	}

	var sources []catalogSource
	for _, entry := range entries {
		name := entry.Name()
		switch {
		case entry.IsDir():
			src, err := unitDirSource(fsys, name)
			if err != nil {
				return err
			}
			sources = append(sources, src)
		case strings.HasSuffix(name, ".yaml") || strings.HasSuffix(name, ".yml"):
			src, err := bundleSource(fsys, name)
			if err != nil {
				return err
			}
			sources = append(sources, src)
		}
	}
	sort.Slice(sources, func(i, j int) bool { return sources[i].name < sources[j].name })

	// Retry until no catalog makes progress; a catalog may reference one loaded after it.
	for len(sources) > 0 {
		var failed []catalogSource
		var lastErr error
		for _, src := range sources {
			b := r.Builder(src.name)
			err := src.build(b)
			if err == nil {
				err = b.Finalize()
			}
			if err != nil {
				if diagnostics.CodeOf(err) != diagnostics.EUnresolved {
					return fmt.Errorf("catalog %s: %w", src.name, err)
				}
				failed = append(failed, src)
				lastErr = err
			}
		}
		if len(failed) == len(sources) {
			return fmt.Errorf("catalog %s: %w", failed[0].name, lastErr)
		}
		sources = failed
	}
	return nil
}

func unitDirSource(fsys fs.FS, dir string) (catalogSource, error) {
	files, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return catalogSource{}, errorf(diagnostics.EIO, "read catalog %s: %v", dir, err)
	}

	type parsed struct {
		symbol string
		file   string
		source string
	}
	var units []parsed
	for _, f := range files {
		if f.IsDir() || path.Ext(f.Name()) != ".unit" {
			continue
		}
		p := path.Join(dir, f.Name())
		data, err := fs.ReadFile(fsys, p)
		if err != nil {
			return catalogSource{}, errorf(diagnostics.EIO, "read %s: %v", p, err)
		}
		units = append(units, parsed{symbol: strings.TrimSuffix(f.Name(), ".unit"), file: p, source: string(data)})
	}

	return catalogSource{name: dir, build: func(b *Builder) error {
		for _, u := range units {
			file, diags := parser.ParseUnitFile(u.source, u.file)
			if len(diags) > 0 {
				return errorf(diags[0].Code, "%s: %s", u.file, diags[0].Message)
			}
			if err := b.AddUnitFile(u.symbol, file); err != nil {
				return err
			}
		}
		return nil
	}}, nil
}

func bundleSource(fsys fs.FS, name string) (catalogSource, error) {
	data, err := fs.ReadFile(fsys, name)
	if err != nil {
		return catalogSource{}, errorf(diagnostics.EIO, "read %s: %v", name, err)
	}
	var bundle Bundle
	if err := yaml.Unmarshal(data, &bundle); err != nil {
		return catalogSource{}, errorf(diagnostics.EMalformed, "parse %s: %v", name, err)
	}
	if bundle.Name == "" {
		bundle.Name = strings.TrimSuffix(strings.TrimSuffix(name, ".yaml"), ".yml")
	}
	return catalogSource{name: bundle.Name, build: bundle.apply}, nil
}

func (bundle Bundle) apply(b *Builder) error {
	for _, u := range bundle.Units {
		if err := b.AddUnit(u.Symbol, u.Name); err != nil {
			return err
		}
	}
	for _, u := range bundle.Units {
		for _, rel := range u.Relations {
			if err := b.AddRelationSource(rel); err != nil {
				return err
			}
		}
	}
	return nil
}

// ExportBundle returns catalog as a Bundle, suitable for writing with yaml.Marshal.
func (r *Registry) ExportBundle(catalog string) (*Bundle, error) {
	c, ok := r.Catalog(catalog)
	if !ok {
		return nil, unresolved("catalog %q not found", catalog)
	}
	bundle := &Bundle{Name: c.Name}
	for _, u := range c.Units() {
		bu := BundleUnit{Symbol: u.ID.Symbol, Name: u.Name}
		for _, rel := range u.Relations() {
			bu.Relations = append(bu.Relations, rel.String())
		}
		bundle.Units = append(bundle.Units, bu)
	}
	return bundle, nil
}
