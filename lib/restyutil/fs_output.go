package restyutil

import (
	"log/slog"
	"os"
	"path/filepath"
)

// FilesystemOutput writes one file per exchange into a directory,
// clearing it on construction so a run's transcripts are not mixed
// with a prior run's.
type FilesystemOutput struct {
	directory string
}

func NewFilesystemOutput(dir string) FilesystemOutput {
	os.RemoveAll(dir)
	err := os.MkdirAll(dir, 0777)
	if err != nil {
		panic(err)
	}
	return FilesystemOutput{directory: dir}
}

func (o FilesystemOutput) Write(id string, contents string) {
	err := os.WriteFile(filepath.Join(o.directory, id+".txt"), []byte(contents), 0600)
	if err != nil {
		slog.Warn("failed to write exchange transcript", "id", id, "err", err)
	}
}

// FromEnv returns a FilesystemOutput rooted at $OPENELEX_HTTP_DEBUG,
// or nil when the variable is unset.
func FromEnv() Output {
	dir := os.Getenv("OPENELEX_HTTP_DEBUG")
	if dir == "" {
		return nil
	}
	return NewFilesystemOutput(dir)
}
