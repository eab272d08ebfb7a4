// Package batchtest builds pickled batch records and tar.gz archives for tests.
package batchtest

import (
	"archive/tar"
	"bytes"
	"encoding/binary"
	"os"
	"testing"

	"github.com/klauspost/compress/gzip"
)

// Pickle opcodes used by the writer.
const (
	opProto          = 0x80
	opStop           = '.'
	opMark           = '('
	opEmptyDict      = '}'
	opEmptyList      = ']'
	opSetItems       = 'u'
	opAppends        = 'e'
	opTuple          = 't'
	opTuple1         = 0x85
	opTuple3         = 0x87
	opNewFalse       = 0x89
	opNewTrue        = 0x88
	opNone           = 'N'
	opBinInt         = 'J'
	opBinInt1        = 'K'
	opBinUnicode     = 'X'
	opShortBinString = 'U'
	opBinString      = 'T'
	opBinBytes       = 'B'
	opGlobal         = 'c'
	opReduce         = 'R'
	opBuild          = 'b'
)

// Batch describes the content of one pickled batch member.
type Batch struct {
	Data      [][]byte
	Filenames []string // nil omits the key
	Label     *string  // nil omits the key
	// NDArray stores Data as a numpy uint8 matrix, the way the published
	// archives do; otherwise Data is a list of bytes objects.
	NDArray bool
	// BytesKeys writes dictionary keys as bytes instead of str.
	BytesKeys bool
}

// Member is one named tar entry.
type Member struct {
	Name string
	Body []byte
}

// Pixels returns a deterministic raw buffer of the given length.
func Pixels(n int, seed byte) []byte {
	out := make([]byte, n)
	for i := range out {
		out[i] = byte(i)*3 + seed
	}
	return out
}

// Label returns a pointer to s.
func Label(s string) *string {
	return &s
}

// Pickle serializes b using pickle protocol 2 opcodes.
func Pickle(b Batch) []byte {
	w := &writer{}
	w.op(opProto, 2)
	w.op(opEmptyDict)
	w.op(opMark)

	w.key("data", b.BytesKeys)
	if b.NDArray {
		w.ndarray(b.Data)
	} else {
		w.op(opEmptyList)
		if len(b.Data) > 0 {
			w.op(opMark)
			for _, row := range b.Data {
				w.bytesObj(row)
			}
			w.op(opAppends)
		}
	}

	if b.Filenames != nil {
		w.key("filenames", b.BytesKeys)
		w.op(opEmptyList)
		if len(b.Filenames) > 0 {
			w.op(opMark)
			for _, name := range b.Filenames {
				w.unicode(name)
			}
			w.op(opAppends)
		}
	}

	if b.Label != nil {
		w.key("batch_label", b.BytesKeys)
		w.unicode(*b.Label)
	}

	w.op(opSetItems)
	w.op(opStop)
	return w.buf.Bytes()
}

// WriteArchive writes members into a gzip-compressed tar file at path.
func WriteArchive(t testing.TB, path string, members ...Member) {
	t.Helper()

	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	tw := tar.NewWriter(gz)
	for _, m := range members {
		hdr := &tar.Header{
			Name:     m.Name,
			Mode:     0o644,
			Size:     int64(len(m.Body)),
			Typeflag: tar.TypeReg,
		}
		if err := tw.WriteHeader(hdr); err != nil {
			t.Fatalf("write tar header %s: %v", m.Name, err)
		}
		if _, err := tw.Write(m.Body); err != nil {
			t.Fatalf("write tar body %s: %v", m.Name, err)
		}
	}
	if err := tw.Close(); err != nil {
		t.Fatalf("close tar writer: %v", err)
	}
	if err := gz.Close(); err != nil {
		t.Fatalf("close gzip writer: %v", err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatalf("write archive %s: %v", path, err)
	}
}

type writer struct {
	buf bytes.Buffer
}

func (w *writer) op(codes ...byte) {
	w.buf.Write(codes)
}

func (w *writer) key(k string, asBytes bool) {
	if asBytes {
		w.bytesObj([]byte(k))
		return
	}
	w.unicode(k)
}

func (w *writer) u32(n int) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], uint32(int32(n)))
	w.buf.Write(b[:])
}

func (w *writer) integer(n int) {
	if n >= 0 && n < 256 {
		w.op(opBinInt1, byte(n))
		return
	}
	w.op(opBinInt)
	w.u32(n)
}

func (w *writer) unicode(s string) {
	w.op(opBinUnicode)
	w.u32(len(s))
	w.buf.WriteString(s)
}

func (w *writer) shortString(s string) {
	w.op(opShortBinString, byte(len(s)))
	w.buf.WriteString(s)
}

func (w *writer) bytesObj(b []byte) {
	w.op(opBinBytes)
	w.u32(len(b))
	w.buf.Write(b)
}

func (w *writer) global(module, name string) {
	w.op(opGlobal)
	w.buf.WriteString(module + "\n" + name + "\n")
}

// ndarray emits numpy.core.multiarray._reconstruct followed by the array state,
// with the raw data as a Python 2 str.
func (w *writer) ndarray(rows [][]byte) {
	rowLen := 0
	if len(rows) > 0 {
		rowLen = len(rows[0])
	}
	var raw []byte
	for _, r := range rows {
		raw = append(raw, r...)
	}

	w.global("numpy.core.multiarray", "_reconstruct")
	w.global("numpy", "ndarray")
	w.integer(0)
	w.op(opTuple1)
	w.shortString("b")
	w.op(opTuple3)
	w.op(opReduce)

	w.op(opMark)
	w.integer(1)
	w.op(opMark)
	w.integer(len(rows))
	w.integer(rowLen)
	w.op(opTuple)
	w.dtype()
	w.op(opNewFalse)
	w.op(opBinString)
	w.u32(len(raw))
	w.buf.Write(raw)
	w.op(opTuple)
	w.op(opBuild)
}

func (w *writer) dtype() {
	w.global("numpy", "dtype")
	w.shortString("u1")
	w.op(opNewFalse)
	w.op(opNewTrue)
	w.op(opTuple3)
	w.op(opReduce)

	w.op(opMark)
	w.integer(3)
	w.shortString("|")
	w.op(opNone, opNone, opNone)
	w.integer(-1)
	w.integer(-1)
	w.integer(0)
	w.op(opTuple)
	w.op(opBuild)
}
