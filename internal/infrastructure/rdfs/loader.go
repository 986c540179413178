// Package rdfs reads CIM RDFS schema directories into a schema.Schema.
package rdfs

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/RWTH-IAEW/cimpyorm/internal/domain/schema"
	"github.com/RWTH-IAEW/cimpyorm/internal/domain/shared"
	"github.com/RWTH-IAEW/cimpyorm/internal/infrastructure/rdfxml"
)

// Loader reads schema files below a schema root laid out as <root>/CIM<version>/*.rdf.
type Loader struct {
	root   string
	logger *zap.Logger
}

// LoaderOption configures a Loader.
type LoaderOption func(*Loader)

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) LoaderOption {
	return func(l *Loader) {
		l.logger = logger
	}
}

// NewLoader creates a loader for the given schema root.
func NewLoader(root string, opts ...LoaderOption) *Loader {
	l := &Loader{root: root, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// VersionPath returns the directory holding the schema of a CIM version.
func (l *Loader) VersionPath(version string) (string, error) {
	if version == "" {
		return "", shared.Wrap(shared.ErrInvalidInput, "no CIM version given")
	}
	if len(version) > 2 {
		return "", shared.Wrap(shared.ErrInvalidInput, "invalid CIM version %q", version)
	}
	path := filepath.Join(l.root, "CIM"+version)
	info, err := os.Stat(path)
	if err != nil || !info.IsDir() {
		return "", shared.Wrap(shared.ErrNotFound, "unknown CIM version %q (no schema at %s)", version, path)
	}
	return path, nil
}

// Load reads the schema of a CIM version. A non-empty whitelist restricts the
// loaded profiles; entries may be full ("EquipmentProfile") or short ("EQ") names.
func (l *Loader) Load(ctx context.Context, version string, whitelist []string) (*schema.Schema, error) {
	dir, err := l.VersionPath(version)
	if err != nil {
		return nil, err
	}
	files, err := SchemaFiles(dir)
	if err != nil {
		return nil, err
	}
	l.logger.Info("Loading CIM schema",
		zap.String("version", version),
		zap.String("path", dir),
		zap.Int("files", len(files)))
	return l.Parse(ctx, version, files, whitelist)
}

// SchemaFiles lists the RDFS files of a schema directory, sorted by name.
func SchemaFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read schema directory: %w", err)
	}
	var files []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(e.Name())) {
		case ".rdf", ".xml":
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	if len(files) == 0 {
		return nil, shared.Wrap(shared.ErrNotFound, "no schema files in %s", dir)
	}
	sort.Strings(files)
	return files, nil
}

type schemaFile struct {
	path    string
	doc     *rdfxml.Document
	profile *schema.Profile
}

// Parse reads and merges the given RDFS files.
func (l *Loader) Parse(ctx context.Context, version string, paths []string, whitelist []string) (*schema.Schema, error) {
	files := make([]*schemaFile, len(paths))
	eg, egCtx := errgroup.WithContext(ctx)
	for i, path := range paths {
		eg.Go(func() error {
			if err := egCtx.Err(); err != nil {
				return err
			}
			f, err := os.Open(path)
			if err != nil {
				return fmt.Errorf("failed to open schema file: %w", err)
			}
			defer f.Close()
			doc, err := rdfxml.Decode(f)
			if err != nil {
				return fmt.Errorf("%s: %w", filepath.Base(path), err)
			}
			files[i] = &schemaFile{path: path, doc: doc, profile: detectProfile(doc, path)}
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	files, err := applyWhitelist(files, whitelist)
	if err != nil {
		return nil, err
	}

	nsmap := rdfxml.NSMap{}
	for _, f := range files {
		for _, prefix := range nsmap.Merge(f.doc.Namespaces) {
			l.logger.Error("Conflicting namespace definition",
				zap.String("prefix", prefix),
				zap.String("file", filepath.Base(f.path)))
		}
	}
	delete(nsmap, "")

	b := &builder{
		schema: schema.New(version, nsmap),
		nsmap:  nsmap,
		logger: l.logger,
		descs:  make(map[string]*description),
	}
	for _, f := range files {
		b.schema.AddProfile(f.profile)
		for _, n := range f.doc.Root.Children {
			if !n.Is(rdfxml.RDF, "Description") {
				continue
			}
			b.add(newDescription(n, f.profile.Name))
		}
	}
	if err := b.build(); err != nil {
		return nil, err
	}
	if err := b.schema.Link(); err != nil {
		return nil, err
	}
	for _, c := range b.schema.Classes() {
		for _, name := range c.Dropped {
			l.logger.Debug("Property range not loaded, property dropped",
				zap.String("class", c.Name),
				zap.String("property", name))
		}
	}
	l.logger.Info("CIM schema loaded",
		zap.String("version", version),
		zap.Int("profiles", len(b.schema.Profiles())),
		zap.Int("classes", len(b.schema.Classes())))
	return b.schema, nil
}

// detectProfile finds the file's profile package and its version header.
func detectProfile(doc *rdfxml.Document, path string) *schema.Profile {
	var p *schema.Profile
	for _, n := range doc.Root.Children {
		d := newDescription(n, "")
		if !d.hasType("#ClassCategory") || len(d.labels) == 0 {
			continue
		}
		if strings.HasSuffix(d.labels[0], "Profile") {
			p = &schema.Profile{Name: d.labels[0]}
			break
		}
	}
	if p == nil {
		base := filepath.Base(path)
		p = &schema.Profile{Name: strings.TrimSuffix(base, filepath.Ext(base))}
	}
	for _, n := range doc.Root.Children {
		about := n.About()
		i := strings.Index(about, "Version.")
		if i < 0 {
			continue
		}
		prop := about[i+len("Version."):]
		d := newDescription(n, "")
		if len(d.fixed) == 0 {
			continue
		}
		switch {
		case prop == "shortName":
			p.Short = d.fixed[0]
		case strings.Contains(prop, "URI"):
			p.URIs = append(p.URIs, d.fixed...)
		}
	}
	return p
}

func applyWhitelist(files []*schemaFile, whitelist []string) ([]*schemaFile, error) {
	if len(whitelist) == 0 {
		return files, nil
	}
	var unknown []string
	keep := make(map[*schemaFile]struct{})
	for _, name := range whitelist {
		found := false
		for _, f := range files {
			if f.profile.Matches(name) {
				keep[f] = struct{}{}
				found = true
			}
		}
		if !found {
			unknown = append(unknown, name)
		}
	}
	if len(unknown) > 0 {
		return nil, shared.Wrap(shared.ErrInvalidInput, "unknown profiles in whitelist: %s", strings.Join(unknown, ", "))
	}
	out := make([]*schemaFile, 0, len(keep))
	for _, f := range files {
		if _, ok := keep[f]; ok {
			out = append(out, f)
		}
	}
	return out, nil
}
