// Package lpk assembles and inspects LPK application packages: a zip with
// manifest.yml, icon.png and content.tar.
package lpk

import (
	"archive/tar"
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/sikenali/DTOLPK/internal/manifest"
	"github.com/sikenali/DTOLPK/internal/model"
	"go.uber.org/zap"
)

// Entry names inside a package, in write order.
const (
	ManifestEntry = "manifest.yml"
	IconEntry     = "icon.png"
	ContentEntry  = "content.tar"
)

// Extension of package files.
const Extension = ".lpk"

// Input describes one package.
type Input struct {
	Manifest   *model.Manifest
	IconPath   string
	ContentDir string
	OutputDir  string
	// ExcludeFiles are left out of content.tar when they lie inside
	// ContentDir, e.g. the compose files and the answer cache.
	ExcludeFiles []string
	// Patterns are extra exclusion patterns in .dockerignore syntax.
	Patterns []string
	Logger   *zap.Logger
}

// Result describes a written package.
type Result struct {
	Path         string
	Size         int64
	ContentFiles int
}

// FileName returns the package file name for pkg.
func FileName(pkg string) string {
	return pkg + Extension
}

// Assemble writes {package}.lpk into the output directory. The package is
// written to a temporary file and renamed into place, so a failure never
// leaves a partial package at the destination.
func Assemble(ctx context.Context, in Input) (res *Result, err error) {
	logger := in.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	if in.Manifest == nil {
		return nil, errors.New("lpk: no manifest")
	}

	data, err := manifest.Marshal(in.Manifest)
	if err != nil {
		return nil, err
	}

	icon, err := os.Open(in.IconPath)
	if err != nil {
		return nil, &model.IOError{Op: "open icon", Path: in.IconPath, Err: err}
	}
	defer icon.Close()

	ex, err := newExcluder(in.ContentDir, in.Patterns, append([]string{in.IconPath}, in.ExcludeFiles...))
	if err != nil {
		return nil, err
	}

	content, err := os.CreateTemp("", "docker2lpk-content-*.tar")
	if err != nil {
		return nil, &model.IOError{Op: "create", Path: os.TempDir(), Err: err}
	}
	defer func() {
		content.Close()
		os.Remove(content.Name())
	}()

	count, err := writeContentTar(ctx, content, in.ContentDir, ex, logger)
	if err != nil {
		return nil, err
	}
	if _, err := content.Seek(0, io.SeekStart); err != nil {
		return nil, &model.IOError{Op: "rewind", Path: content.Name(), Err: err}
	}
	logger.Debug("content archived", zap.Int("entries", count))

	if err := os.MkdirAll(in.OutputDir, 0o755); err != nil {
		return nil, &model.IOError{Op: "create", Path: in.OutputDir, Err: err}
	}
	final := filepath.Join(in.OutputDir, FileName(in.Manifest.Package))
	tmp, err := os.CreateTemp(in.OutputDir, "."+FileName(in.Manifest.Package)+"-*.tmp")
	if err != nil {
		return nil, &model.IOError{Op: "create", Path: in.OutputDir, Err: err}
	}
	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmp.Name())
		}
	}()

	zw := zip.NewWriter(tmp)
	entries := []struct {
		name string
		r    io.Reader
	}{
		{ManifestEntry, bytes.NewReader(data)},
		{IconEntry, icon},
		{ContentEntry, content},
	}
	for _, e := range entries {
		if err = ctx.Err(); err != nil {
			return nil, err
		}
		if err = writeZipEntry(zw, e.name, e.r); err != nil {
			return nil, &model.IOError{Op: "write " + e.name, Path: tmp.Name(), Err: err}
		}
	}
	if err = zw.Close(); err != nil {
		return nil, &model.IOError{Op: "finalize", Path: tmp.Name(), Err: err}
	}
	if err = tmp.Chmod(0o644); err != nil {
		return nil, &model.IOError{Op: "chmod", Path: tmp.Name(), Err: err}
	}
	if err = tmp.Close(); err != nil {
		return nil, &model.IOError{Op: "close", Path: tmp.Name(), Err: err}
	}
	if err = os.Rename(tmp.Name(), final); err != nil {
		return nil, &model.IOError{Op: "rename", Path: final, Err: err}
	}

	info, err := os.Stat(final)
	if err != nil {
		return nil, &model.IOError{Op: "stat", Path: final, Err: err}
	}
	logger.Info("package written", zap.String("path", final), zap.Int64("bytes", info.Size()))
	return &Result{Path: final, Size: info.Size(), ContentFiles: count}, nil
}

func writeZipEntry(zw *zip.Writer, name string, r io.Reader) error {
	hdr := &zip.FileHeader{Name: name, Method: zip.Deflate, Modified: epoch}
	hdr.SetMode(0o644)
	w, err := zw.CreateHeader(hdr)
	if err != nil {
		return err
	}
	_, err = io.Copy(w, r)
	return err
}

// Package is the inspected content of an .lpk file.
type Package struct {
	Entries  []string // zip entries in order
	Manifest *model.Manifest
	Content  []string // content.tar entry names in order
	Icon     []byte
}

// Inspect reads a package back.
func Inspect(path string) (*Package, error) {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return nil, &model.IOError{Op: "open", Path: path, Err: err}
	}
	defer zr.Close()

	pkg := &Package{}
	for _, f := range zr.File {
		pkg.Entries = append(pkg.Entries, f.Name)
		if err := inspectEntry(pkg, f); err != nil {
			return nil, &model.IOError{Op: "read " + f.Name, Path: path, Err: err}
		}
	}
	if pkg.Manifest == nil {
		return nil, &model.IOError{Op: "read", Path: path, Err: fmt.Errorf("%s not found", ManifestEntry)}
	}
	return pkg, nil
}

func inspectEntry(pkg *Package, f *zip.File) error {
	rc, err := f.Open()
	if err != nil {
		return err
	}
	defer rc.Close()

	switch f.Name {
	case ManifestEntry:
		data, err := io.ReadAll(rc)
		if err != nil {
			return err
		}
		pkg.Manifest, err = manifest.Unmarshal(data)
		return err
	case IconEntry:
		pkg.Icon, err = io.ReadAll(rc)
		return err
	case ContentEntry:
		tr := tar.NewReader(rc)
		for {
			hdr, err := tr.Next()
			if errors.Is(err, io.EOF) {
				return nil
			}
			if err != nil {
				return err
			}
			pkg.Content = append(pkg.Content, hdr.Name)
		}
	}
	return nil
}
