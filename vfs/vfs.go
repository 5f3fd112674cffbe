package vfs

import (
	"io"
)

// must contain only metadata (filename) until Open/List/GetElement calls
type Element interface {
	Init(parent Directory)
	Name() string
	IsDirectory() bool
}

type File interface {
	Element
	Size() int64
	Open(readonly bool) error
	Close() error
	Reader() (*io.SectionReader, error)
	// Copy replaces file content
	Copy(src io.Reader) error
}

type Directory interface {
	Element
	List() ([]string, error)
	GetElement(name string) (Element, error)
	// Create returns existing file or adds empty one
	Create(name string) (File, error)
	Remove(name string) error
}
