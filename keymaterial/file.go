package keymaterial

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"

	"github.com/ruteri/did-ledger-adapter/interfaces"
)

// FileSource reads key material from the local file system.
type FileSource struct {
	path string
	log  *slog.Logger
}

func NewFileSource(path string, log *slog.Logger) *FileSource {
	return &FileSource{path: path, log: log}
}

func (s *FileSource) Fetch(ctx context.Context) ([]byte, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", interfaces.ErrKeyMaterialNotFound, s.path)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", interfaces.ErrSourceUnavailable, err)
	}

	s.log.Debug("Read key material from file",
		slog.String("path", s.path),
		slog.Int("size", len(data)))
	return data, nil
}

func (s *FileSource) Name() string {
	return "file"
}

func (s *FileSource) LocationURI() string {
	return "file://" + s.path
}
