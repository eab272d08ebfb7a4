package failure

import (
	"errors"
	"fmt"
	"io"
	"testing"
)

func TestError_IsMatchesKind(t *testing.T) {
	err := New(KindDownloadFailed, "fetch archive", io.ErrUnexpectedEOF)
	wrapped := fmt.Errorf("ingest: %w", err)

	if !errors.Is(wrapped, ErrDownloadFailed) {
		t.Fatalf("expected wrapped error to match ErrDownloadFailed")
	}
	if errors.Is(wrapped, ErrArchiveCorrupt) {
		t.Fatalf("did not expect wrapped error to match ErrArchiveCorrupt")
	}
	if !errors.Is(wrapped, io.ErrUnexpectedEOF) {
		t.Fatalf("expected cause to remain reachable through Unwrap")
	}
}

func TestKindOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{name: "nil", err: nil, want: ""},
		{name: "plain error", err: errors.New("boom"), want: ""},
		{name: "direct", err: New(KindNoCandidates, "resolve", nil), want: KindNoCandidates},
		{name: "wrapped", err: fmt.Errorf("x: %w", New(KindPersistence, "insert", errors.New("db"))), want: KindPersistence},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := KindOf(tt.err); got != tt.want {
				t.Errorf("KindOf() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestExitCode(t *testing.T) {
	if got := ExitCode(nil); got != 0 {
		t.Errorf("ExitCode(nil) = %d, want 0", got)
	}
	if got := ExitCode(errors.New("x")); got != 1 {
		t.Errorf("ExitCode(plain) = %d, want 1", got)
	}
	if got := ExitCode(New(KindRecordMalformed, "decode", nil)); got != 14 {
		t.Errorf("ExitCode(RecordMalformed) = %d, want 14", got)
	}
}

func TestError_Message(t *testing.T) {
	err := Newf(KindRecordMalformed, "decode member data_batch_1", "buffer %d has %d bytes", 3, 10)
	want := "[RECORD_MALFORMED] decode member data_batch_1: buffer 3 has 10 bytes"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
}
