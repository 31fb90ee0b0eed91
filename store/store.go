package store

import (
	"io"
	"os"
	"path/filepath"
	"sort"

	"github.com/pkg/errors"
)

// FileStore keeps exported results as plain files in a directory.
type FileStore struct {
	dataDir string
}

func NewFileStore(dataDir string) *FileStore {
	return &FileStore{
		dataDir: dataDir,
	}
}

// Path returns the full path of the file with the given name.
func (fs *FileStore) Path(name string) string {
	return filepath.Join(fs.dataDir, filepath.Base(name))
}

// List returns the names of all files in the store, sorted.
func (fs *FileStore) List() ([]string, error) {
	entries, err := os.ReadDir(fs.dataDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []string{}, nil
		}
		return nil, errors.Wrap(err, "failed to list store")
	}

	files := make([]string, 0)
	for _, entry := range entries {
		if !entry.IsDir() {
			files = append(files, entry.Name())
		}
	}

	sort.Strings(files)
	return files, nil
}

func (fs *FileStore) Contains(name string) (bool, error) {
	_, err := os.Stat(fs.Path(name))
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (fs *FileStore) Store(name string, content io.Reader) error {
	if err := os.MkdirAll(fs.dataDir, 0755); err != nil {
		return errors.Wrap(err, "failed to create store directory")
	}

	file, err := os.Create(fs.Path(name))
	if err != nil {
		return errors.Wrap(err, "failed to create file")
	}
	defer file.Close()

	_, err = io.Copy(file, content)
	return err
}

// Get returns a reader for the file with the given name. The caller is responsible for closing the reader!
func (fs *FileStore) Get(name string) (io.ReadCloser, error) {
	return os.Open(fs.Path(name))
}
