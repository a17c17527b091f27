package metadata

import "os"

// FileSystem reads metadata files
type FileSystem interface {
	ReadFile(name string) ([]byte, error)
}

// OSFileSystem reads files from the local disk
type OSFileSystem struct{}

// ReadFile implements FileSystem
func (OSFileSystem) ReadFile(name string) ([]byte, error) {
	return os.ReadFile(name)
}
