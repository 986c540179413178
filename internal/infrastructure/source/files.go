// Package source discovers CIM instance files, decodes them and turns their
// elements into dataset objects.
package source

import (
	"archive/zip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/RWTH-IAEW/cimpyorm/internal/domain/shared"
)

// File is a parseable instance document on disk or inside a zip archive.
type File struct {
	Name string
	Path string
	open func() (io.ReadCloser, error)
}

// Open opens the document for reading.
func (f File) Open() (io.ReadCloser, error) {
	return f.open()
}

// ParseableFiles resolves paths to instance documents: .xml and .rdf files,
// the xml/rdf entries of .zip archives and the xml/rdf files of directories.
// A directory without xml/rdf files contributes its first zip archive.
func ParseableFiles(paths ...string) ([]File, error) {
	var out []File
	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			return nil, shared.Wrap(shared.ErrNotFound, "dataset path %s", path)
		}
		var files []File
		if info.IsDir() {
			files, err = directoryFiles(path)
		} else {
			files, err = pathFiles(path)
		}
		if err != nil {
			return nil, err
		}
		out = append(out, files...)
	}
	if len(out) == 0 {
		return nil, shared.Wrap(shared.ErrNotFound, "no parseable files in %s", strings.Join(paths, ", "))
	}
	return out, nil
}

func directoryFiles(dir string) ([]File, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read dataset directory: %w", err)
	}
	var files []File
	var zips []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		path := filepath.Join(dir, e.Name())
		switch strings.ToLower(filepath.Ext(e.Name())) {
		case ".xml", ".rdf":
			files = append(files, plainFile(path))
		case ".zip":
			zips = append(zips, path)
		}
	}
	if len(files) > 0 {
		sort.Slice(files, func(i, j int) bool { return files[i].Path < files[j].Path })
		return files, nil
	}
	if len(zips) > 0 {
		sort.Strings(zips)
		return zipFiles(zips[0])
	}
	return nil, nil
}

func pathFiles(path string) ([]File, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xml", ".rdf":
		return []File{plainFile(path)}, nil
	case ".zip":
		return zipFiles(path)
	default:
		return nil, shared.Wrap(shared.ErrInvalidInput, "unsupported dataset file %s", path)
	}
}

func plainFile(path string) File {
	return File{
		Name: filepath.Base(path),
		Path: path,
		open: func() (io.ReadCloser, error) {
			return os.Open(path)
		},
	}
}

func zipFiles(path string) ([]File, error) {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open zip archive %s: %w", path, err)
	}
	defer zr.Close()

	var files []File
	for _, entry := range zr.File {
		if entry.FileInfo().IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(entry.Name)) {
		case ".xml", ".rdf":
		default:
			continue
		}
		name := entry.Name
		files = append(files, File{
			Name: filepath.Base(name),
			Path: path + "/" + name,
			open: func() (io.ReadCloser, error) {
				return openZipEntry(path, name)
			},
		})
	}
	return files, nil
}

type zipEntryReader struct {
	io.ReadCloser
	archive *zip.ReadCloser
}

func (z *zipEntryReader) Close() error {
	err := z.ReadCloser.Close()
	if cerr := z.archive.Close(); err == nil {
		err = cerr
	}
	return err
}

func openZipEntry(path, name string) (io.ReadCloser, error) {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open zip archive %s: %w", path, err)
	}
	rc, err := zr.Open(name)
	if err != nil {
		zr.Close()
		return nil, fmt.Errorf("failed to open %s in %s: %w", name, path, err)
	}
	return &zipEntryReader{ReadCloser: rc, archive: zr}, nil
}
