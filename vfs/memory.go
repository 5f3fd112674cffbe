package vfs

import (
	"bytes"
	"io"
	"os"
	"sync"

	"github.com/pkg/errors"
)

// MemoryDirectory keeps flat list of files in memory, safe for concurrent use
type MemoryDirectory struct {
	name  string
	lock  sync.RWMutex
	files map[string]*MemoryFile
}

func NewMemoryDirectory(name string) *MemoryDirectory {
	return &MemoryDirectory{name: name, files: make(map[string]*MemoryFile)}
}

func (md *MemoryDirectory) Init(parent Directory) {}
func (md *MemoryDirectory) Name() string          { return md.name }
func (md *MemoryDirectory) IsDirectory() bool     { return true }

func (md *MemoryDirectory) List() ([]string, error) {
	md.lock.RLock()
	defer md.lock.RUnlock()
	result := make([]string, 0, len(md.files))
	for name := range md.files {
		result = append(result, name)
	}
	return result, nil
}

func (md *MemoryDirectory) GetElement(name string) (Element, error) {
	md.lock.RLock()
	defer md.lock.RUnlock()
	if f, ok := md.files[name]; ok {
		return f, nil
	}
	return nil, errors.Wrapf(os.ErrNotExist, "%q", name)
}

func (md *MemoryDirectory) Create(name string) (File, error) {
	if err := ValidName(name); err != nil {
		return nil, err
	}
	md.lock.Lock()
	defer md.lock.Unlock()
	if f, ok := md.files[name]; ok {
		return f, nil
	}
	f := &MemoryFile{name: name}
	md.files[name] = f
	return f, nil
}

func (md *MemoryDirectory) Remove(name string) error {
	md.lock.Lock()
	defer md.lock.Unlock()
	if _, ok := md.files[name]; !ok {
		return errors.Wrapf(os.ErrNotExist, "%q", name)
	}
	delete(md.files, name)
	return nil
}

// MemoryFile content is replaced as whole, opened readers keep old content
type MemoryFile struct {
	name string
	lock sync.Mutex
	data []byte
}

func NewMemoryFile(name string, data []byte) *MemoryFile {
	return &MemoryFile{name: name, data: data}
}

func (mf *MemoryFile) Init(parent Directory)    {}
func (mf *MemoryFile) Name() string             { return mf.name }
func (mf *MemoryFile) IsDirectory() bool        { return false }
func (mf *MemoryFile) Open(readonly bool) error { return nil }
func (mf *MemoryFile) Close() error             { return nil }

func (mf *MemoryFile) Size() int64 {
	mf.lock.Lock()
	defer mf.lock.Unlock()
	return int64(len(mf.data))
}

func (mf *MemoryFile) Reader() (*io.SectionReader, error) {
	mf.lock.Lock()
	defer mf.lock.Unlock()
	return io.NewSectionReader(bytes.NewReader(mf.data), 0, int64(len(mf.data))), nil
}

func (mf *MemoryFile) Copy(src io.Reader) error {
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, src); err != nil {
		return errors.Wrapf(err, "io.Copy(...)")
	}
	mf.lock.Lock()
	mf.data = buf.Bytes()
	mf.lock.Unlock()
	return nil
}
