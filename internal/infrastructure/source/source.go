package source

import (
	"context"
	"fmt"
	"runtime"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/RWTH-IAEW/cimpyorm/internal/domain/dataset"
	"github.com/RWTH-IAEW/cimpyorm/internal/domain/shared"
	"github.com/RWTH-IAEW/cimpyorm/internal/infrastructure/rdfxml"
)

// Source is a decoded instance document together with its provenance record.
type Source struct {
	Info *dataset.SourceInfo
	Doc  *rdfxml.Document
}

// ReadAll decodes the files concurrently. Results keep the input order.
func ReadAll(ctx context.Context, files []File) ([]*Source, error) {
	sources := make([]*Source, len(files))
	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(runtime.GOMAXPROCS(0))
	for i, f := range files {
		eg.Go(func() error {
			if err := egCtx.Err(); err != nil {
				return err
			}
			src, err := Read(f)
			if err != nil {
				return err
			}
			sources[i] = src
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return sources, nil
}

// Read decodes one file.
func Read(f File) (*Source, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", f.Name, err)
	}
	defer rc.Close()
	doc, err := rdfxml.Decode(rc)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", f.Name, err)
	}
	info, err := NewSourceInfo(f.Name, doc)
	if err != nil {
		return nil, err
	}
	return &Source{Info: info, Doc: doc}, nil
}

// NewSourceInfo extracts the model header and namespaces of a document.
func NewSourceInfo(name string, doc *rdfxml.Document) (*dataset.SourceInfo, error) {
	info := &dataset.SourceInfo{
		Filename:   name,
		FullModel:  make(map[string][]string),
		Namespaces: make(map[string]string, len(doc.Namespaces)),
	}
	for prefix, uri := range doc.Namespaces {
		if prefix != "" {
			info.Namespaces[prefix] = uri
		}
	}

	headers := doc.Root.Find(rdfxml.MD, "FullModel")
	if len(headers) > 1 {
		return nil, shared.Wrap(shared.ErrAmbiguous, "ambiguous model ID in %s", name)
	}
	if len(headers) == 0 {
		return info, nil
	}
	header := headers[0]
	id := header.About()
	if id == "" {
		id = header.ID()
	}
	info.UUID = strings.TrimPrefix(id, "urn:uuid:")

	for _, child := range header.Children {
		key := child.Name.Local
		if i := strings.Index(key, "Model."); i >= 0 {
			key = key[i+len("Model."):]
		}
		value := strings.TrimSpace(child.Text)
		if r := child.Resource(); r != "" {
			value = strings.TrimPrefix(r, "urn:uuid:")
		}
		if value == "" {
			continue
		}
		info.FullModel[key] = append(info.FullModel[key], value)
	}
	return info, nil
}

// CIMVersion determines the CIM version shared by all sources.
// Disagreeing sources are logged and the first version wins.
func CIMVersion(sources []*Source, logger *zap.Logger) (string, error) {
	version := ""
	for _, src := range sources {
		v := src.Info.CIMVersion()
		if v == "" {
			continue
		}
		if version == "" {
			version = v
			continue
		}
		if v != version {
			logger.Error("Ambiguous CIM versions in dataset",
				zap.String("file", src.Info.Filename),
				zap.String("version", v),
				zap.String("using", version))
		}
	}
	if version == "" {
		return "", shared.Wrap(shared.ErrInvalidInput, "no CIM version found in dataset")
	}
	return version, nil
}

// Namespaces merges the namespace maps of all sources.
func Namespaces(sources []*Source, logger *zap.Logger) rdfxml.NSMap {
	nsmap := rdfxml.NSMap{}
	for _, src := range sources {
		for _, prefix := range nsmap.Merge(src.Doc.Namespaces) {
			logger.Error("Conflicting namespace definition",
				zap.String("prefix", prefix),
				zap.String("file", src.Info.Filename))
		}
	}
	delete(nsmap, "")
	return nsmap
}
