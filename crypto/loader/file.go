package loader

import (
	"os"

	"golang.org/x/xerrors"
)

// keyPerm only allows the owner to read the key.
const keyPerm = 0400

// fileLoader stores the key in a file.
//
// - implements loader.Loader
type fileLoader struct {
	path string

	statFn  func(path string) (os.FileInfo, error)
	readFn  func(path string) ([]byte, error)
	writeFn func(path string, data []byte) error
}

// NewFileLoader returns a loader of the key of the file.
func NewFileLoader(path string) Loader {
	return fileLoader{
		path:    path,
		statFn:  os.Stat,
		readFn:  os.ReadFile,
		writeFn: writeExclusive,
	}
}

// LoadOrCreate implements loader.Loader. The new key is written only if the
// file still does not exist, so that two processes never overwrite each
// other's key.
func (l fileLoader) LoadOrCreate(g Generator) ([]byte, error) {
	_, err := l.statFn(l.path)
	if err == nil {
		return l.Load()
	}

	if !os.IsNotExist(err) {
		return nil, xerrors.Errorf("failed to stat: %v", err)
	}

	data, err := g.Generate()
	if err != nil {
		return nil, xerrors.Errorf("generator failed: %v", err)
	}

	err = l.writeFn(l.path, data)
	if err != nil {
		return nil, xerrors.Errorf("failed to create file: %v", err)
	}

	return data, nil
}

// Load implements loader.Loader. An empty file is an error.
func (l fileLoader) Load() ([]byte, error) {
	data, err := l.readFn(l.path)
	if err != nil {
		return nil, xerrors.Errorf("failed to read file: %v", err)
	}

	if len(data) == 0 {
		return nil, xerrors.Errorf("key file '%s' is empty", l.path)
	}

	return data, nil
}

func writeExclusive(path string, data []byte) error {
	file, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, keyPerm)
	if err != nil {
		return err
	}

	_, err = file.Write(data)
	if err != nil {
		file.Close()
		return err
	}

	return file.Close()
}
