package buildcontext

import (
	"archive/tar"
	"fmt"
	"io"
	"sort"
)

// WriteTar streams the whole context into w as a tar archive, in sorted path
// order so the stream is reproducible for an unchanged context. Extra holds
// in-memory files (the generated Dockerfile) appended after the context
// files.
func WriteTar(c Context, w io.Writer, extra map[string][]byte) error {
	tw := tar.NewWriter(w)

	files, err := c.Files()
	if err != nil {
		return err
	}

	for _, rel := range files {
		data, err := c.ReadFile(rel)
		if err != nil {
			return fmt.Errorf("read %s: %w", rel, err)
		}
		if err := writeTarFile(tw, rel, data); err != nil {
			return err
		}
	}

	for _, name := range extraNames(extra) {
		if err := writeTarFile(tw, name, extra[name]); err != nil {
			return err
		}
	}

	if err := tw.Close(); err != nil {
		return fmt.Errorf("close tar: %w", err)
	}
	return nil
}

func extraNames(extra map[string][]byte) []string {
	names := make([]string, 0, len(extra))
	for name := range extra {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func writeTarFile(tw *tar.Writer, name string, data []byte) error {
	hdr := &tar.Header{
		Name: name,
		Mode: 0o644,
		Size: int64(len(data)),
	}
	if err := tw.WriteHeader(hdr); err != nil {
		return fmt.Errorf("write tar header %s: %w", name, err)
	}
	if _, err := tw.Write(data); err != nil {
		return fmt.Errorf("write tar entry %s: %w", name, err)
	}
	return nil
}
