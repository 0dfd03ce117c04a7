package classfile

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"strings"
)

// versionsList is the bundler index entry; each line reads
// "<sha256>\t<id>\t<path>" with the payload stored under META-INF/versions/.
const versionsList = "META-INF/versions.list"

// Archive iterates the class entries of a server archive. A bundler-wrapped
// executable (the launcher jar carrying the actual server jar inside
// META-INF/versions/) is detected and unpacked transparently.
type Archive struct {
	reader *zip.Reader
	closer io.Closer
}

// OpenArchive opens a server jar from disk.
func OpenArchive(path string) (*Archive, error) {
	rc, err := zip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open archive %v: %w", path, err)
	}
	archive := &Archive{reader: &rc.Reader, closer: rc}
	inner, err := archive.unwrapBundle()
	if err != nil {
		_ = rc.Close()
		return nil, err
	}
	if inner != nil {
		inner.closer = rc
		return inner, nil
	}
	return archive, nil
}

// NewArchive opens a server jar held in memory.
func NewArchive(data []byte) (*Archive, error) {
	reader, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("failed to open archive: %w", err)
	}
	archive := &Archive{reader: reader}
	inner, err := archive.unwrapBundle()
	if err != nil {
		return nil, err
	}
	if inner != nil {
		return inner, nil
	}
	return archive, nil
}

// unwrapBundle returns an archive over the bundled server jar when the outer
// archive is a bundler wrapper, nil otherwise.
func (a *Archive) unwrapBundle() (*Archive, error) {
	entry := a.entry(versionsList)
	if entry == nil {
		return nil, nil
	}
	listing, err := readEntry(entry)
	if err != nil {
		return nil, err
	}
	for _, line := range strings.Split(string(listing), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		columns := strings.Split(line, "\t")
		path := columns[len(columns)-1]
		jarEntry := a.entry("META-INF/versions/" + path)
		if jarEntry == nil {
			return nil, fmt.Errorf("bundle lists %v but the entry is missing", path)
		}
		data, err := readEntry(jarEntry)
		if err != nil {
			return nil, err
		}
		reader, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
		if err != nil {
			return nil, fmt.Errorf("failed to open bundled server jar %v: %w", path, err)
		}
		return &Archive{reader: reader}, nil
	}
	return nil, fmt.Errorf("bundle index %v is empty", versionsList)
}

func (a *Archive) entry(name string) *zip.File {
	for _, file := range a.reader.File {
		if file.Name == name {
			return file
		}
	}
	return nil
}

// Classes calls fn for every .class entry of the archive. Iteration stops at
// the first error.
func (a *Archive) Classes(fn func(name string, data []byte) error) error {
	for _, file := range a.reader.File {
		if !strings.HasSuffix(file.Name, ".class") || strings.Contains(file.Name, "META-INF/") {
			continue
		}
		data, err := readEntry(file)
		if err != nil {
			return err
		}
		if err := fn(strings.TrimSuffix(file.Name, ".class"), data); err != nil {
			return err
		}
	}
	return nil
}

// Entry reads one named entry, trying the given names in order. Formats that
// moved their payload across releases list every historical entry name.
func (a *Archive) Entry(names ...string) ([]byte, error) {
	for _, name := range names {
		if file := a.entry(name); file != nil {
			return readEntry(file)
		}
	}
	return nil, fmt.Errorf("no archive entry matches %v", names)
}

// Close releases the underlying file, if the archive was opened from disk.
func (a *Archive) Close() error {
	if a.closer != nil {
		return a.closer.Close()
	}
	return nil
}

func readEntry(file *zip.File) ([]byte, error) {
	rc, err := file.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open entry %v: %w", file.Name, err)
	}
	defer rc.Close()
	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("failed to read entry %v: %w", file.Name, err)
	}
	return data, nil
}
