package nmea

import (
	"errors"
	"fmt"
	"testing"

	"github.com/saviobatista/ais-logger/internal/types"
)

const positionReport = "!AIVDM,1,1,,B,15NG6V0P01G?cFhE`R2IU?wn28R>,0*05"

func sign(body string) string {
	return fmt.Sprintf("!%s*%02X", body, Checksum(body))
}

func TestParseSentence_PositionReport(t *testing.T) {
	s, err := ParseSentence([]byte(positionReport+"\r\n"), true)
	if err != nil {
		t.Fatalf("ParseSentence() error = %v", err)
	}

	if s.Identifier != FormatterVDM {
		t.Errorf("Identifier = %q, want %q", s.Identifier, FormatterVDM)
	}
	if s.FragmentCount != 1 || s.FragmentIndex != 1 {
		t.Errorf("fragment = %d/%d, want 1/1", s.FragmentIndex, s.FragmentCount)
	}
	if s.SequentialID != "" {
		t.Errorf("SequentialID = %q, want empty", s.SequentialID)
	}
	if s.Channel != "B" {
		t.Errorf("Channel = %q, want B", s.Channel)
	}
	if s.Payload != "15NG6V0P01G?cFhE`R2IU?wn28R>" {
		t.Errorf("Payload = %q", s.Payload)
	}
	if s.FillBits != 0 {
		t.Errorf("FillBits = %d, want 0", s.FillBits)
	}
	if s.Checksum != 0x05 || !s.ChecksumOK {
		t.Errorf("Checksum = 0x%02X ok=%v", s.Checksum, s.ChecksumOK)
	}
	if s.Raw != positionReport {
		t.Errorf("Raw = %q, want %q", s.Raw, positionReport)
	}
	if s.Own() {
		t.Error("AIVDM sentence reported as own vessel")
	}
}

func TestParseSentence_LowercaseChecksum(t *testing.T) {
	body := "AIVDO,1,1,,A,B52K>;h00Fc>jpUlNV@ikwpUoP06,0"
	line := fmt.Sprintf("!%s*%02x", body, Checksum(body))

	s, err := ParseSentence([]byte(line), true)
	if err != nil {
		t.Fatalf("ParseSentence(%q) error = %v", line, err)
	}
	if !s.Own() {
		t.Error("expected AIVDO sentence to be own vessel")
	}
}

func TestParseSentence_ChecksumMismatch(t *testing.T) {
	line := "!AIVDM,1,1,,B,15NG6V0P01G?cFhE`R2IU?wn28R>,0*06"

	_, err := ParseSentence([]byte(line), true)
	if !errors.Is(err, types.ErrChecksum) {
		t.Fatalf("strict: expected checksum error, got %v", err)
	}
	var mismatch *types.ChecksumMismatch
	if !errors.As(err, &mismatch) || mismatch.Calculated != 0x05 || mismatch.Declared != 0x06 {
		t.Errorf("mismatch = %+v", mismatch)
	}

	s, err := ParseSentence([]byte(line), false)
	if err != nil {
		t.Fatalf("lenient: unexpected error %v", err)
	}
	if s.ChecksumOK {
		t.Error("lenient: expected ChecksumOK to be false")
	}
	if s.Payload != "15NG6V0P01G?cFhE`R2IU?wn28R>" {
		t.Errorf("lenient: Payload = %q", s.Payload)
	}
}

func TestParseSentence_WithTagBlock(t *testing.T) {
	line := `\s:2573135,c:1671620143*0B\` + positionReport

	s, err := ParseSentence([]byte(line), true)
	if err != nil {
		t.Fatalf("ParseSentence() error = %v", err)
	}
	if s.TagBlock == nil {
		t.Fatal("expected tag block")
	}
	if s.TagBlock.Source == nil || *s.TagBlock.Source != "2573135" {
		t.Errorf("TagBlock.Source = %v", s.TagBlock.Source)
	}
	if s.Payload != "15NG6V0P01G?cFhE`R2IU?wn28R>" {
		t.Errorf("Payload = %q", s.Payload)
	}

	bad := `\s:2573135,c:1671620143*0C\` + positionReport
	if _, err := ParseSentence([]byte(bad), true); !errors.Is(err, types.ErrChecksum) {
		t.Errorf("strict: expected tag block checksum error, got %v", err)
	}
	s, err = ParseSentence([]byte(bad), false)
	if err != nil {
		t.Fatalf("lenient: unexpected error %v", err)
	}
	if s.TagBlock == nil || s.TagBlock.ChecksumOK {
		t.Errorf("lenient: expected tag block with ChecksumOK=false, got %+v", s.TagBlock)
	}
}

func TestParseSentence_Errors(t *testing.T) {
	tests := []struct {
		name  string
		line  string
		want  error
		field string
	}{
		{"empty", "", types.ErrFormat, "sentence"},
		{"bad start", "AIVDM,1,1,,B,15NG6V0P01G?cFhE`R2IU?wn28R>,0*05", types.ErrFormat, "start"},
		{"missing star", "!AIVDM,1,1,,B,15NG6V0P01G?cFhE`R2IU?wn28R>,0", types.ErrFormat, "checksum"},
		{"bad checksum digits", "!AIVDM,1,1,,B,15NG6V0P01G?cFhE`R2IU?wn28R>,0*G5", types.ErrFormat, "checksum"},
		{"other formatter", sign("GPGGA,123519,4807.038,N,01131.000,E,1,08"), types.ErrFraming, "identifier"},
		{"too few fields", sign("AIVDM,1,1,,B,15NG6V0P01G?cFhE`R2IU?wn28R>"), types.ErrFormat, "sentence"},
		{"too many fields", sign("AIVDM,1,1,,B,15NG6V0P01G?cFhE`R2IU?wn28R>,0,0"), types.ErrFormat, "sentence"},
		{"index above count", sign("AIVDM,1,2,,B,15NG6V0P01G?cFhE`R2IU?wn28R>,0"), types.ErrFraming, "fragment_index"},
		{"zero index", sign("AIVDM,2,0,1,B,15NG6V0P01G?cFhE`R2IU?wn28R>,0"), types.ErrFraming, "fragment_index"},
		{"zero count", sign("AIVDM,0,1,,B,15NG6V0P01G?cFhE`R2IU?wn28R>,0"), types.ErrFraming, "fragment_count"},
		{"non numeric count", sign("AIVDM,x,1,,B,15NG6V0P01G?cFhE`R2IU?wn28R>,0"), types.ErrFormat, "fragment_count"},
		{"bad sequential id", sign("AIVDM,2,1,a,B,15NG6V0P01G?cFhE`R2IU?wn28R>,0"), types.ErrFormat, "sequential_id"},
		{"fill above five", sign("AIVDM,1,1,,B,15NG6V0P01G?cFhE`R2IU?wn28R>,6"), types.ErrFormat, "fill_bits"},
		{"fill missing", sign("AIVDM,1,1,,B,15NG6V0P01G?cFhE`R2IU?wn28R>,"), types.ErrFormat, "fill_bits"},
		{"unterminated tag block", `\s:1234` + positionReport, types.ErrFormat, "tag_block"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := ParseSentence([]byte(tt.line), true)
			if s != nil {
				t.Errorf("expected nil sentence, got %+v", s)
			}
			if !errors.Is(err, tt.want) {
				t.Fatalf("error = %v, want %v", err, tt.want)
			}
			var de *types.DecodeError
			if !errors.As(err, &de) {
				t.Fatalf("expected DecodeError, got %T", err)
			}
			if de.Field != tt.field {
				t.Errorf("Field = %q, want %q", de.Field, tt.field)
			}
			if de.Input == "" && tt.line != "" {
				t.Error("expected error to retain the input line")
			}
		})
	}
}

func TestParseSentence_DollarStart(t *testing.T) {
	body := "AIVDM,1,1,,B,15NG6V0P01G?cFhE`R2IU?wn28R>,0"
	line := fmt.Sprintf("$%s*%02X", body, Checksum(body))
	if _, err := ParseSentence([]byte(line), true); err != nil {
		t.Errorf("ParseSentence(%q) error = %v", line, err)
	}
}
