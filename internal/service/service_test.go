package service

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/samcharles93/gridscan/internal/backend/stream"
	"github.com/samcharles93/gridscan/internal/record"
	"github.com/samcharles93/gridscan/pkg/field"
	"github.com/samcharles93/gridscan/pkg/filetype"
)

func writeTestSRV(t *testing.T, order binary.ByteOrder, width int) string {
	t.Helper()
	var buf bytes.Buffer
	w := NewWriter(&buf, order, width)
	fields := []struct {
		h      Header
		values []float64
	}{
		{Header{Code: 130, Level: 850, Date: 20240301, Time: 1230, Nlon: 3, Nlat: 2}, []float64{1, 2, 3, 4, 5, 6}},
		{Header{Code: 131, Level: 500, Date: 20240301, Time: 1230, Nlon: 3, Nlat: 2}, []float64{-1, record.MissingValue, 0.5, 2, record.MissingValue, 7}},
	}
	for _, f := range fields {
		if err := w.Write(f.h, f.values); err != nil {
			t.Fatalf("write srv: %v", err)
		}
	}
	path := filepath.Join(t.TempDir(), "test.srv")
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}
	return path
}

func TestReadSRV(t *testing.T) {
	t.Parallel()

	for _, tc := range []struct {
		order binary.ByteOrder
		width int
		dt    field.Datatype
	}{
		{binary.BigEndian, 4, field.Flt32},
		{binary.LittleEndian, 8, field.Flt64},
	} {
		path := writeTestSRV(t, tc.order, tc.width)
		if ft, err := filetype.Detect(path); err != nil || ft != filetype.SRV {
			t.Fatalf("detect: got %v, %v", ft, err)
		}

		s, err := Open(path)
		if err != nil {
			t.Fatalf("open: %v", err)
		}
		var m stream.Meta
		if err := s.Next(&m); err != nil {
			t.Fatalf("next: %v", err)
		}
		if m.Param != field.CodeParam(130, 0) || m.Name != "var130" {
			t.Fatalf("param mismatch: got %v %q", m.Param, m.Name)
		}
		if m.Datatype != tc.dt {
			t.Fatalf("datatype mismatch: got %v want %v", m.Datatype, tc.dt)
		}
		if want := time.Date(2024, 3, 1, 12, 30, 0, 0, time.UTC); !m.Start.Equal(want) {
			t.Fatalf("time mismatch: got %v want %v", m.Start, want)
		}
		if m.Level[0] != 850 || m.Grid.Size() != 6 {
			t.Fatalf("level/grid mismatch: %v %+v", m.Level, m.Grid)
		}

		// The first data record is skipped without being read.
		if err := s.Next(&m); err != nil {
			t.Fatalf("next: %v", err)
		}
		buf := make([]float64, 6)
		missing, err := s.Read(buf)
		if err != nil {
			t.Fatalf("read: %v", err)
		}
		if missing != 2 {
			t.Fatalf("missing mismatch: got %d want 2", missing)
		}
		if buf[2] != 0.5 || buf[5] != 7 {
			t.Fatalf("values mismatch: got %v", buf)
		}
		if err := s.Next(&m); !errors.Is(err, io.EOF) {
			t.Fatalf("expected io.EOF, got %v", err)
		}
		if err := s.Close(); err != nil {
			t.Fatalf("close: %v", err)
		}
	}
}

func TestSkipAndEmpty(t *testing.T) {
	t.Parallel()

	s, err := Open(writeTestSRV(t, binary.BigEndian, 4))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer s.Close()
	if err := s.Skip(); err != nil {
		t.Fatalf("skip: %v", err)
	}
	var m stream.Meta
	if err := s.Next(&m); err != nil {
		t.Fatalf("next: %v", err)
	}
	if s.Header().Code != 131 {
		t.Fatalf("code mismatch after skip: got %d", s.Header().Code)
	}

	empty := filepath.Join(t.TempDir(), "empty.srv")
	if err := os.WriteFile(empty, nil, 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}
	e, err := Open(empty)
	if err != nil {
		t.Fatalf("open empty: %v", err)
	}
	defer e.Close()
	if err := e.Next(&m); !errors.Is(err, io.EOF) {
		t.Fatalf("expected io.EOF, got %v", err)
	}
}

func TestTruncatedData(t *testing.T) {
	t.Parallel()

	path := writeTestSRV(t, binary.BigEndian, 4)
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read file: %v", err)
	}
	// Cut inside the first data record.
	if err := os.WriteFile(path, b[:40+10], 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}
	s, err := Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer s.Close()
	var m stream.Meta
	if err := s.Next(&m); err != nil {
		t.Fatalf("next: %v", err)
	}
	if _, err := s.Read(make([]float64, 6)); !errors.Is(err, record.ErrCorruptRecord) {
		t.Fatalf("expected ErrCorruptRecord, got %v", err)
	}
}
