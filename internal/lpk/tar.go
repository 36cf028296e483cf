package lpk

import (
	"archive/tar"
	"context"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/sikenali/DTOLPK/internal/model"
	"go.uber.org/zap"
)

// epoch is the modification time written for every archived entry.
var epoch = time.Date(1980, 1, 1, 0, 0, 0, 0, time.UTC)

// writeContentTar writes dir to w as an uncompressed tar. Entries are
// visited in lexical order and carry no owner or time information, so equal
// directory trees give equal bytes.
func writeContentTar(ctx context.Context, w io.Writer, dir string, ex *excluder, logger *zap.Logger) (int, error) {
	tw := tar.NewWriter(w)
	count := 0

	err := filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if p == dir {
			return nil
		}

		rel, err := filepath.Rel(dir, p)
		if err != nil {
			return err
		}
		name := filepath.ToSlash(rel)

		skip, err := ex.excluded(name)
		if err != nil {
			return err
		}
		if skip {
			logger.Debug("excluded from content", zap.String("path", name))
			if d.IsDir() && ex.prunable() {
				return filepath.SkipDir
			}
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return err
		}

		var link string
		switch mode := info.Mode(); {
		case mode.IsRegular(), mode.IsDir():
		case mode&fs.ModeSymlink != 0:
			if link, err = os.Readlink(p); err != nil {
				return err
			}
		default:
			logger.Debug("skipping special file", zap.String("path", name), zap.Stringer("mode", mode))
			return nil
		}

		hdr, err := tar.FileInfoHeader(info, link)
		if err != nil {
			return err
		}
		hdr.Name = name
		if d.IsDir() {
			hdr.Name += "/"
		}
		hdr.ModTime = epoch
		hdr.AccessTime = time.Time{}
		hdr.ChangeTime = time.Time{}
		hdr.Uid, hdr.Gid = 0, 0
		hdr.Uname, hdr.Gname = "", ""
		hdr.Format = tar.FormatPAX

		if err := tw.WriteHeader(hdr); err != nil {
			return err
		}
		count++

		if !info.Mode().IsRegular() {
			return nil
		}
		f, err := os.Open(p)
		if err != nil {
			return err
		}
		defer f.Close()
		_, err = io.Copy(tw, f)
		return err
	})
	if err != nil {
		return 0, &model.IOError{Op: "archive", Path: dir, Err: err}
	}
	if err := tw.Close(); err != nil {
		return 0, &model.IOError{Op: "archive", Path: dir, Err: err}
	}
	return count, nil
}
