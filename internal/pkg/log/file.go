package log

import (
	"os"
	"path/filepath"

	"github.com/trouze/dbt-terraform-modules-yaml/internal/pkg/utils/errors"
)

// File is a log file defined by the --log-file flag.
// Log file can be outside the output directory, so it is NOT using virtual filesystem.
type File struct {
	file *os.File
	path string
}

// NewLogFile opens the log file for appending, it is created if it does not exist.
func NewLogFile(path string) (*File, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(filepath.Dir(absPath), 0o755); err != nil {
		return nil, errors.Errorf(`cannot create log file directory "%s": %w`, filepath.Dir(absPath), err)
	}

	file, err := os.OpenFile(absPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, errors.Errorf(`cannot open log file "%s": %w`, absPath, err)
	}

	return &File{file: file, path: absPath}, nil
}

func (f *File) File() *os.File {
	return f.file
}

func (f *File) Path() string {
	return f.path
}

func (f *File) TearDown() {
	if f == nil {
		return
	}

	if err := f.file.Close(); err != nil {
		panic(errors.Errorf(`cannot close log file "%s": %w`, f.path, err))
	}
}
