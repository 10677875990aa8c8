package artifacts

import (
	"archive/tar"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/ulikunitz/xz"
)

func (r *Run) BundleName() string {
	return "rekap_" + r.BaseName() + ".tar.xz"
}

// WriteBundle streams every file of the run as an xz-compressed tar archive.
func (r *Run) WriteBundle(w io.Writer) error {
	names, err := r.Files()
	if err != nil {
		return fmt.Errorf("list run files: %w", err)
	}

	xw, err := xz.NewWriter(w)
	if err != nil {
		return fmt.Errorf("create xz writer: %w", err)
	}
	tw := tar.NewWriter(xw)
	for _, name := range names {
		if err := addToTar(tw, filepath.Join(r.Dir, name), name); err != nil {
			return err
		}
	}
	if err := tw.Close(); err != nil {
		return fmt.Errorf("close tar: %w", err)
	}
	if err := xw.Close(); err != nil {
		return fmt.Errorf("close xz: %w", err)
	}
	return nil
}

func addToTar(tw *tar.Writer, path, name string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return err
	}
	header, err := tar.FileInfoHeader(info, "")
	if err != nil {
		return err
	}
	header.Name = name
	if err := tw.WriteHeader(header); err != nil {
		return fmt.Errorf("write tar header for %s: %w", name, err)
	}
	if _, err := io.Copy(tw, f); err != nil {
		return fmt.Errorf("write %s to tar: %w", name, err)
	}
	return nil
}
