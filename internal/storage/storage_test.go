package storage

import (
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"
)

const sampleLine = "!AIVDM,1,1,,B,15NG6V0P01G?cFhE`R2IU?wn28R>,0*05"

// fakeClock is a settable time source
type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Set(t time.Time) {
	c.mu.Lock()
	c.t = t
	c.mu.Unlock()
}

func readTodayFile(t *testing.T, dir string) string {
	t.Helper()
	content, err := os.ReadFile(filepath.Join(dir, FileName(time.Now()))) // #nosec G304 - controlled test path
	if err != nil {
		t.Fatalf("Failed to read log file: %v", err)
	}
	return string(content)
}

func readGzip(t *testing.T, path string) string {
	t.Helper()
	f, err := os.Open(path) // #nosec G304 - controlled test path
	if err != nil {
		t.Fatalf("Failed to open compressed file: %v", err)
	}
	defer f.Close()

	zr, err := gzip.NewReader(f)
	if err != nil {
		t.Fatalf("Failed to create gzip reader: %v", err)
	}
	defer zr.Close()

	data, err := io.ReadAll(zr)
	if err != nil {
		t.Fatalf("Failed to read decompressed content: %v", err)
	}
	return string(data)
}

func TestNew(t *testing.T) {
	outputDir := "/test/output"
	storage := New(outputDir)

	if storage == nil {
		t.Fatal("New() returned nil")
	}
	if storage.outputDir != outputDir {
		t.Errorf("Expected outputDir to be %s, got %s", outputDir, storage.outputDir)
	}
	if storage.file != nil {
		t.Error("Expected file to be nil initially")
	}
	if storage.stopChan == nil {
		t.Error("Expected stopChan to be initialized")
	}
}

func TestFileName(t *testing.T) {
	ts := time.Date(2024, 3, 1, 23, 30, 0, 0, time.FixedZone("UTC-2", -2*3600))
	if got := FileName(ts); got != "ais_2024-03-02.log" {
		t.Errorf("FileName() = %s, want ais_2024-03-02.log", got)
	}
}

func TestStorage_StartAndStop(t *testing.T) {
	storage := New(t.TempDir())

	if err := storage.Start(); err != nil {
		t.Fatalf("Start() failed: %v", err)
	}
	if err := storage.Stop(); err != nil {
		t.Fatalf("Stop() failed: %v", err)
	}
	// Stop is idempotent
	if err := storage.Stop(); err != nil {
		t.Fatalf("second Stop() failed: %v", err)
	}
}

func TestStorage_StopWithoutStart(t *testing.T) {
	storage := New(t.TempDir())

	if err := storage.Stop(); err != nil {
		t.Errorf("Stop() should not fail when not started: %v", err)
	}
}

func TestStorage_WriteMessage(t *testing.T) {
	tests := []struct {
		name    string
		message string
		want    string
	}{
		{"sentence", sampleLine, sampleLine + "\n"},
		{"already terminated", sampleLine + "\n", sampleLine + "\n"},
		{"empty message", "", "\n"},
		{"tag block", `\s:2573135,c:1671620143*0B\` + sampleLine, `\s:2573135,c:1671620143*0B\` + sampleLine + "\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			storage := New(dir)
			if err := storage.Start(); err != nil {
				t.Fatalf("Start() failed: %v", err)
			}
			defer func() {
				if err := storage.Stop(); err != nil {
					t.Errorf("Stop() failed: %v", err)
				}
			}()

			if err := storage.WriteMessage([]byte(tt.message)); err != nil {
				t.Fatalf("WriteMessage() failed: %v", err)
			}

			if got := readTodayFile(t, dir); got != tt.want {
				t.Errorf("Expected content %q, got %q", tt.want, got)
			}
		})
	}
}

func TestStorage_WriteWithoutStart(t *testing.T) {
	dir := t.TempDir()
	storage := New(dir)
	defer storage.Stop()

	if err := storage.WriteMessage([]byte(sampleLine)); err != nil {
		t.Fatalf("WriteMessage() failed: %v", err)
	}
	if got := readTodayFile(t, dir); got != sampleLine+"\n" {
		t.Errorf("unexpected content %q", got)
	}
}

func TestStorage_ValidatePath(t *testing.T) {
	tempDir := t.TempDir()
	storage := New(tempDir)

	if err := storage.validatePath(filepath.Join(tempDir, "test.log")); err != nil {
		t.Errorf("validatePath() should accept valid path: %v", err)
	}
	if err := storage.validatePath(filepath.Join(os.TempDir(), "elsewhere", "test.log")); err == nil {
		t.Error("validatePath() should reject path outside output directory")
	}
	if err := storage.validatePath(filepath.Join(tempDir, "..", "test.log")); err == nil {
		t.Error("validatePath() should reject path traversal")
	}
}

func TestStorage_CompressFile(t *testing.T) {
	tempDir := t.TempDir()
	storage := New(tempDir)

	testFile := filepath.Join(tempDir, "ais_2024-03-01.log")
	content := strings.Repeat(sampleLine+"\n", 100)
	if err := os.WriteFile(testFile, []byte(content), 0o600); err != nil {
		t.Fatalf("Failed to create test file: %v", err)
	}

	if err := storage.compressFile(testFile); err != nil {
		t.Fatalf("compressFile() failed: %v", err)
	}

	if _, err := os.Stat(testFile); err == nil {
		t.Error("Original file should have been removed")
	}
	if got := readGzip(t, testFile+".gz"); got != content {
		t.Errorf("decompressed content differs: got %d bytes, want %d", len(got), len(content))
	}
}

func TestStorage_CompressNonExistentFile(t *testing.T) {
	tempDir := t.TempDir()
	storage := New(tempDir)

	if err := storage.compressFile(filepath.Join(tempDir, "nonexistent.log")); err == nil {
		t.Error("compressFile() should fail for non-existent file")
	}
}

func TestStorage_RotateFileInvalidPath(t *testing.T) {
	storage := New("/invalid/path/that/does/not/exist")

	if err := storage.rotateFile(); err == nil {
		t.Error("rotateFile() should fail with invalid path")
	}
}

func TestStorage_DayRollover(t *testing.T) {
	dir := t.TempDir()
	clock := &fakeClock{t: time.Date(2024, 3, 1, 23, 59, 0, 0, time.UTC)}
	storage := New(dir)
	storage.now = clock.Now
	defer storage.Stop()

	if err := storage.WriteMessage([]byte("first day")); err != nil {
		t.Fatalf("WriteMessage() failed: %v", err)
	}

	clock.Set(time.Date(2024, 3, 2, 0, 1, 0, 0, time.UTC))
	if err := storage.WriteMessage([]byte("second day")); err != nil {
		t.Fatalf("WriteMessage() failed: %v", err)
	}

	if got := readGzip(t, filepath.Join(dir, "ais_2024-03-01.log.gz")); got != "first day\n" {
		t.Errorf("previous day content = %q", got)
	}
	if _, err := os.Stat(filepath.Join(dir, "ais_2024-03-01.log")); !os.IsNotExist(err) {
		t.Error("previous day file should have been replaced by its archive")
	}
	current, err := os.ReadFile(filepath.Join(dir, "ais_2024-03-02.log"))
	if err != nil {
		t.Fatalf("Failed to read current file: %v", err)
	}
	if string(current) != "second day\n" {
		t.Errorf("current day content = %q", current)
	}
}

func TestStorage_RotateSameDayKeepsFile(t *testing.T) {
	dir := t.TempDir()
	storage := New(dir)
	if err := storage.Start(); err != nil {
		t.Fatalf("Start() failed: %v", err)
	}
	defer storage.Stop()

	if err := storage.WriteMessage([]byte("before")); err != nil {
		t.Fatal(err)
	}
	if err := storage.rotateAndCompress(); err != nil {
		t.Fatalf("rotateAndCompress() failed: %v", err)
	}
	if err := storage.WriteMessage([]byte("after")); err != nil {
		t.Fatal(err)
	}

	if got := readTodayFile(t, dir); got != "before\nafter\n" {
		t.Errorf("unexpected content %q", got)
	}
}

func TestStorage_ConcurrentWrites(t *testing.T) {
	dir := t.TempDir()
	storage := New(dir)
	if err := storage.Start(); err != nil {
		t.Fatalf("Start() failed: %v", err)
	}
	defer func() {
		if err := storage.Stop(); err != nil {
			t.Errorf("Stop() failed: %v", err)
		}
	}()

	const numGoroutines = 10
	const messagesPerGoroutine = 10

	var wg sync.WaitGroup
	for i := 0; i < numGoroutines; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			for j := 0; j < messagesPerGoroutine; j++ {
				if err := storage.WriteMessage([]byte(fmt.Sprintf("message %d from goroutine %d", j, id))); err != nil {
					t.Errorf("WriteMessage failed: %v", err)
				}
			}
		}(i)
	}
	wg.Wait()

	lines := strings.Split(strings.TrimSpace(readTodayFile(t, dir)), "\n")
	if len(lines) != numGoroutines*messagesPerGoroutine {
		t.Errorf("Expected %d lines, got %d", numGoroutines*messagesPerGoroutine, len(lines))
	}
}
