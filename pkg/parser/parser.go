package parser

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/ccollicutt/chatlog/internal/logging"
	"github.com/ccollicutt/chatlog/pkg/resolver"
	"github.com/ccollicutt/chatlog/pkg/transcript"
)

// FileSource implements MessageSource for reading transcript files.
// Each file is reconstructed independently, in the order given.
type FileSource struct {
	files    []string
	resolver *resolver.Resolver

	currentFile    *os.File
	currentScanner *transcript.Scanner
	currentSource  string
	fileIndex      int

	done  Stats // totals from files already closed
	stats Stats // records and drops, all files
}

// NewFileSource creates a MessageSource that reads from the given files.
// A nil resolver uses resolver.New().
func NewFileSource(files []string, res *resolver.Resolver) *FileSource {
	if res == nil {
		res = resolver.New()
	}
	return &FileSource{
		files:     files,
		resolver:  res,
		fileIndex: -1,
	}
}

// Next returns the next resolved message.
// Skips records whose date or time cannot be resolved.
// Returns io.EOF when all files have been exhausted.
func (s *FileSource) Next(ctx context.Context) (*resolver.Message, error) {
	for {
		// Check for context cancellation
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		// Ensure we have a file open
		if s.currentScanner == nil {
			if err := s.openNextFile(); err != nil {
				return nil, err
			}
		}

		rec, err := s.currentScanner.Next()
		if errors.Is(err, io.EOF) {
			// Current file exhausted, try next
			if err := s.closeCurrentFile(); err != nil {
				return nil, err
			}
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", s.currentSource, err)
		}
		s.stats.Records++

		msg, err := s.resolver.Resolve(*rec)
		if err != nil {
			s.stats.Dropped++
			logging.Get(ctx).Debugw("dropping record",
				"source", s.currentSource,
				"line", rec.LineNum,
				"error", err)
			continue
		}
		msg.Source = s.currentSource
		return msg, nil
	}
}

// Stats reports counts across every file read so far.
func (s *FileSource) Stats() Stats {
	st := s.done.Add(s.stats)
	if s.currentScanner != nil {
		st.Lines += s.currentScanner.Lines()
		st.Entries += s.currentScanner.Entries()
	}
	return st
}

// Close releases resources.
func (s *FileSource) Close() error {
	return s.closeCurrentFile()
}

func (s *FileSource) openNextFile() error {
	s.fileIndex++
	if s.fileIndex >= len(s.files) {
		return io.EOF
	}

	path := s.files[s.fileIndex]
	f, err := os.Open(path) // #nosec G304 -- user-provided paths are expected
	if err != nil {
		return fmt.Errorf("opening transcript %s: %w", path, err)
	}

	s.currentFile = f
	s.currentScanner = transcript.NewScanner(f)
	s.currentSource = path
	s.done.Files++

	return nil
}

func (s *FileSource) closeCurrentFile() error {
	if s.currentScanner != nil {
		s.done.Lines += s.currentScanner.Lines()
		s.done.Entries += s.currentScanner.Entries()
		s.currentScanner = nil
	}
	if s.currentFile != nil {
		err := s.currentFile.Close()
		s.currentFile = nil
		return err
	}
	return nil
}
