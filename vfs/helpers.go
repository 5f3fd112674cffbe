package vfs

import (
	"bytes"
	"io"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pkg/errors"
)

// ValidName rejects names that escape directory
func ValidName(name string) error {
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, `/\`) {
		return errors.Errorf("Invalid file name %q", name)
	}
	return nil
}

func OpenFileAndGetReader(f File, readonly bool) (*io.SectionReader, error) {
	if err := f.Open(readonly); err != nil {
		return nil, errors.Wrapf(err, "Cannot open file '%s'", f.Name())
	}
	r, err := f.Reader()
	if err != nil {
		f.Close()
		return nil, errors.Wrapf(err, "Cannot get file '%s' reader", f.Name())
	}
	return r, nil
}

func OpenFileAndCopy(f File, src io.Reader) error {
	if err := f.Open(false); err != nil {
		return errors.Wrapf(err, "Cannot open file '%s'", f.Name())
	}
	defer f.Close()
	if err := f.Copy(src); err != nil {
		return errors.Wrapf(err, "Cannot copy data to file '%s'", f.Name())
	}
	return nil
}

func DirectoryGetFile(d Directory, name string) (File, error) {
	e, err := d.GetElement(name)
	if err != nil {
		return nil, errors.Wrapf(err, "Cannot open file '%s'", name)
	}
	f, ok := e.(File)
	if !ok || e.IsDirectory() {
		return nil, errors.Errorf("File '%s' is directory, not a file", name)
	}
	return f, nil
}

func ReadFile(d Directory, name string) ([]byte, error) {
	f, err := DirectoryGetFile(d, name)
	if err != nil {
		return nil, err
	}
	r, err := OpenFileAndGetReader(f, true)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, r); err != nil {
		return nil, errors.Wrapf(err, "Failed to read '%s'", name)
	}
	return buf.Bytes(), nil
}

func WriteFile(d Directory, name string, data []byte) error {
	f, err := d.Create(name)
	if err != nil {
		return err
	}
	return OpenFileAndCopy(f, bytes.NewReader(data))
}

// ListByExt returns sorted names of files with one of extensions, case insensitive
func ListByExt(d Directory, exts ...string) ([]string, error) {
	names, err := d.List()
	if err != nil {
		return nil, err
	}
	result := make([]string, 0, len(names))
	for _, name := range names {
		ext := strings.ToLower(filepath.Ext(name))
		for _, e := range exts {
			if ext == strings.ToLower(e) {
				result = append(result, name)
				break
			}
		}
	}
	sort.Strings(result)
	return result, nil
}
