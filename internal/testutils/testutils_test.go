package testutils

import (
	"math"
	"strings"
	"testing"
	"time"
)

func TestPayloadWriter_Payload(t *testing.T) {
	tests := []struct {
		name     string
		build    func(w *PayloadWriter)
		payload  string
		fill     int
		wantBits int
	}{
		{"single sextet", func(w *PayloadWriter) { w.Uint(6, 1) }, "1", 0, 6},
		{"high alphabet", func(w *PayloadWriter) { w.Uint(6, 40).Uint(6, 63) }, "`w", 0, 12},
		{"padded", func(w *PayloadWriter) { w.Uint(4, 0xF) }, "t", 2, 4},
		{"negative", func(w *PayloadWriter) { w.Int(6, -1) }, "w", 0, 6},
		{"text", func(w *PayloadWriter) { w.Text(18, "ab") }, "120", 0, 18},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := &PayloadWriter{}
			tt.build(w)
			if w.Len() != tt.wantBits {
				t.Errorf("Len() = %d, want %d", w.Len(), tt.wantBits)
			}
			payload, fill := w.Payload()
			if payload != tt.payload || fill != tt.fill {
				t.Errorf("Payload() = %q, %d; want %q, %d", payload, fill, tt.payload, tt.fill)
			}
		})
	}
}

func TestSentence(t *testing.T) {
	got := Sentence(1, 1, "", "B", "15NG6V0P01G?cFhE`R2IU?wn28R>", 0)
	want := "!AIVDM,1,1,,B,15NG6V0P01G?cFhE`R2IU?wn28R>,0*05"
	if got != want {
		t.Errorf("Sentence() = %q, want %q", got, want)
	}
}

func TestTagBlock(t *testing.T) {
	got := TagBlock("s:2573135,c:1671620143")
	want := `\s:2573135,c:1671620143*0B\`
	if got != want {
		t.Errorf("TagBlock() = %q, want %q", got, want)
	}
}

func TestPositionReport(t *testing.T) {
	line := PositionReport(367380120, 37.8, -122.4, 12.3)
	if !strings.HasPrefix(line, "!AIVDM,1,1,,A,1") {
		t.Errorf("unexpected sentence %q", line)
	}
	// 168 bits is exactly 28 characters
	fields := strings.Split(line, ",")
	if len(fields[5]) != 28 {
		t.Errorf("payload length = %d, want 28", len(fields[5]))
	}

	unavailable := PositionReport(367380120, math.NaN(), math.NaN(), math.NaN())
	if unavailable == line {
		t.Error("expected unavailable values to change the payload")
	}
}

func TestStaticVoyageData(t *testing.T) {
	lines := StaticVoyageData(244123456, "3", "EVER GIVEN", "3FOD5", "ROTTERDAM")
	if len(lines) != 2 {
		t.Fatalf("got %d sentences, want 2", len(lines))
	}
	if !strings.HasPrefix(lines[0], "!AIVDM,2,1,3,A,5") {
		t.Errorf("first sentence = %q", lines[0])
	}
	if !strings.HasPrefix(lines[1], "!AIVDM,2,2,3,A,") || !strings.Contains(lines[1], ",2*") {
		t.Errorf("second sentence = %q", lines[1])
	}
}

func TestMockAISMessage(t *testing.T) {
	msg := MockAISMessage("!AIVDM,1,1,,B,15NG6V0P01G?cFhE`R2IU?wn28R>,0*05")

	if msg.Source != "test-source" {
		t.Errorf("Expected source 'test-source', got '%s'", msg.Source)
	}
	if time.Since(msg.Timestamp) > 5*time.Second {
		t.Error("Timestamp should be recent")
	}
}

func TestMockVesselState(t *testing.T) {
	state := MockVesselState(265547250)

	if state.MMSI != 265547250 {
		t.Errorf("Expected MMSI 265547250, got %d", state.MMSI)
	}
	if !state.HasPosition() {
		t.Error("Expected a position")
	}
	if state.Heading == nil || *state.Heading != 100 {
		t.Errorf("unexpected heading %v", state.Heading)
	}
}

func TestWaitForCondition(t *testing.T) {
	start := time.Now()
	calls := 0
	err := WaitForCondition(func() bool {
		calls++
		return calls >= 2
	}, time.Second)
	if err != nil {
		t.Errorf("WaitForCondition() error = %v", err)
	}
	if time.Since(start) > time.Second {
		t.Error("WaitForCondition() took too long")
	}

	err = WaitForCondition(func() bool { return false }, 250*time.Millisecond)
	if err == nil {
		t.Error("WaitForCondition() expected timeout error")
	}
}

func TestIsIntegrationTest(t *testing.T) {
	t.Setenv("SKIP_INTEGRATION", "1")
	if IsIntegrationTest() {
		t.Error("expected integration tests to be disabled")
	}
	t.Setenv("SKIP_INTEGRATION", "")
	if !IsIntegrationTest() {
		t.Error("expected integration tests to be enabled")
	}
}
