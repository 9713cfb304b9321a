package storage

import (
	"compress/gzip"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

const dateLayout = "2006-01-02"

// Storage writes raw AIS lines to one file per UTC day and gzips
// each day once it is over
type Storage struct {
	outputDir string
	file      *os.File
	day       string
	now       func() time.Time
	mu        sync.Mutex
	stopChan  chan struct{}
	stopOnce  sync.Once
	wg        sync.WaitGroup
}

// New creates a new Storage instance
func New(outputDir string) *Storage {
	return &Storage{
		outputDir: outputDir,
		now:       time.Now,
		stopChan:  make(chan struct{}),
	}
}

// FileName returns the log file name for the UTC day of t
func FileName(t time.Time) string {
	return fmt.Sprintf("ais_%s.log", t.UTC().Format(dateLayout))
}

// Start opens today's file and starts the rotation timer
func (s *Storage) Start() error {
	s.mu.Lock()
	err := s.rotateFile()
	s.mu.Unlock()
	if err != nil {
		return err
	}

	s.wg.Add(1)
	go s.rotationTimer()

	return nil
}

// Stop closes the current file and stops the rotation timer
func (s *Storage) Stop() error {
	s.stopOnce.Do(func() { close(s.stopChan) })
	s.wg.Wait()

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.file != nil {
		err := s.file.Close()
		s.file = nil
		return err
	}
	return nil
}

// WriteMessage appends one line to the current day's file
func (s *Storage) WriteMessage(message []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Roll over when a write lands on a new day before the timer fires
	if s.file == nil || s.day != s.now().UTC().Format(dateLayout) {
		if err := s.rotateAndCompressLocked(); err != nil {
			return err
		}
	}

	if len(message) > 0 && message[len(message)-1] == '\n' {
		_, err := s.file.Write(message)
		return err
	}

	_, err := s.file.Write(append(message, '\n'))
	return err
}

// rotationTimer rotates at midnight UTC
func (s *Storage) rotationTimer() {
	defer s.wg.Done()

	for {
		now := s.now().UTC()
		nextMidnight := time.Date(now.Year(), now.Month(), now.Day()+1, 0, 0, 0, 0, time.UTC)
		timer := time.NewTimer(nextMidnight.Sub(now))

		select {
		case <-timer.C:
			if err := s.rotateAndCompress(); err != nil {
				log.Printf("Error during rotation: %v", err)
			}
		case <-s.stopChan:
			timer.Stop()
			return
		}
	}
}

func (s *Storage) rotateAndCompress() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rotateAndCompressLocked()
}

// rotateAndCompressLocked closes the current file, compresses it when its
// day is over and opens the file for today
func (s *Storage) rotateAndCompressLocked() error {
	previous := ""
	if s.file != nil {
		previous = s.file.Name()
		if err := s.file.Close(); err != nil {
			log.Printf("Error closing %s: %v", previous, err)
		}
		s.file = nil
	}

	today := s.now().UTC().Format(dateLayout)
	if previous != "" && s.day != today {
		if err := s.compressFile(previous); err != nil {
			return fmt.Errorf("failed to compress file: %w", err)
		}
	}

	return s.rotateFile()
}

// validatePath rejects paths that resolve outside the output directory
func (s *Storage) validatePath(path string) error {
	base, err := filepath.Abs(s.outputDir)
	if err != nil {
		return err
	}
	target, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	rel, err := filepath.Rel(base, target)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return fmt.Errorf("path %s is outside %s", path, s.outputDir)
	}
	return nil
}

// compressFile gzips path to path.gz and removes the original
func (s *Storage) compressFile(path string) error {
	if err := s.validatePath(path); err != nil {
		return err
	}

	source, err := os.Open(path)
	if err != nil {
		return err
	}
	defer source.Close()

	compressed := path + ".gz"
	target, err := os.Create(compressed)
	if err != nil {
		return err
	}

	gzipWriter := gzip.NewWriter(target)
	gzipWriter.Name = filepath.Base(path)
	if _, err := io.Copy(gzipWriter, source); err != nil {
		gzipWriter.Close()
		target.Close()
		return err
	}
	if err := gzipWriter.Close(); err != nil {
		target.Close()
		return err
	}
	if err := target.Close(); err != nil {
		return err
	}

	return os.Remove(path)
}

// rotateFile opens the file for the current day
func (s *Storage) rotateFile() error {
	now := s.now().UTC()
	filename := filepath.Join(s.outputDir, FileName(now))

	file, err := os.OpenFile(filename, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("failed to create log file: %w", err)
	}

	s.file = file
	s.day = now.Format(dateLayout)
	return nil
}
