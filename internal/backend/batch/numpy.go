package batch

import (
	"fmt"

	"github.com/nlpodyssey/gopickle/types"
)

// The batch files store their pixel data as a numpy uint8 matrix. Only the
// handful of globals numpy emits for a plain C-ordered array are understood;
// anything else makes the unpickler fail.

// findClass resolves the globals referenced by a batch pickle.
func findClass(module, name string) (interface{}, error) {
	switch module + "." + name {
	case "numpy.core.multiarray._reconstruct", "numpy._core.multiarray._reconstruct":
		return reconstructFunc{}, nil
	case "numpy.ndarray":
		return ndarrayClass{}, nil
	case "numpy.dtype":
		return dtypeClass{}, nil
	case "_codecs.encode":
		return codecsEncode{}, nil
	}
	return nil, fmt.Errorf("unsupported pickle global %s.%s", module, name)
}

// ndarrayClass stands in for numpy.ndarray when passed to _reconstruct.
type ndarrayClass struct{}

// reconstructFunc is numpy.core.multiarray._reconstruct.
type reconstructFunc struct{}

func (reconstructFunc) Call(args ...interface{}) (interface{}, error) {
	if len(args) == 0 {
		return nil, fmt.Errorf("_reconstruct: missing arguments")
	}
	if _, ok := args[0].(ndarrayClass); !ok {
		return nil, fmt.Errorf("_reconstruct: unsupported subtype %T", args[0])
	}
	return &ndarray{}, nil
}

// dtypeClass is numpy.dtype.
type dtypeClass struct{}

func (dtypeClass) Call(args ...interface{}) (interface{}, error) {
	if len(args) == 0 {
		return nil, fmt.Errorf("dtype: missing descriptor")
	}
	descr, ok := asString(args[0])
	if !ok {
		return nil, fmt.Errorf("dtype: descriptor has type %T", args[0])
	}
	return &dtype{descr: descr}, nil
}

type dtype struct {
	descr string
}

// PySetState accepts the dtype state tuple; byte order is irrelevant for
// single byte items.
func (d *dtype) PySetState(state interface{}) error {
	return nil
}

func (d *dtype) itemSize() int {
	switch d.descr {
	case "u1", "|u1", "i1", "|i1", "b1", "|b1":
		return 1
	}
	return 0
}

// codecsEncode is _codecs.encode, used by protocol 2 pickles written by
// Python 3 to carry bytes objects as latin-1 text.
type codecsEncode struct{}

func (codecsEncode) Call(args ...interface{}) (interface{}, error) {
	if len(args) == 0 {
		return nil, fmt.Errorf("_codecs.encode: missing arguments")
	}
	s, ok := args[0].(string)
	if !ok {
		return nil, fmt.Errorf("_codecs.encode: argument has type %T", args[0])
	}
	out := make([]byte, 0, len(s))
	for _, r := range s {
		if r > 0xff {
			return nil, fmt.Errorf("_codecs.encode: rune %U outside latin-1", r)
		}
		out = append(out, byte(r))
	}
	return out, nil
}

// ndarray is a reconstructed numpy array holding its raw bytes.
type ndarray struct {
	shape   []int
	dtype   *dtype
	fortran bool
	data    []byte
}

// PySetState applies (version, shape, dtype, is_fortran, rawdata).
func (a *ndarray) PySetState(state interface{}) error {
	fields, ok := asSlice(state)
	if !ok {
		return fmt.Errorf("ndarray state has type %T", state)
	}
	// Version 0 pickles omit the leading version number.
	if len(fields) == 5 {
		fields = fields[1:]
	}
	if len(fields) != 4 {
		return fmt.Errorf("ndarray state has %d fields", len(fields))
	}

	shapeItems, ok := asSlice(fields[0])
	if !ok {
		return fmt.Errorf("ndarray shape has type %T", fields[0])
	}
	a.shape = make([]int, len(shapeItems))
	for i, v := range shapeItems {
		n, ok := asInt(v)
		if !ok || n < 0 {
			return fmt.Errorf("ndarray shape entry %d is %v", i, v)
		}
		a.shape[i] = n
	}

	dt, ok := fields[1].(*dtype)
	if !ok {
		return fmt.Errorf("ndarray dtype has type %T", fields[1])
	}
	if dt.itemSize() != 1 {
		return fmt.Errorf("unsupported ndarray dtype %q", dt.descr)
	}
	a.dtype = dt

	a.fortran = asBool(fields[2])

	data, ok := asBytes(fields[3])
	if !ok {
		return fmt.Errorf("ndarray data has type %T", fields[3])
	}
	a.data = data
	return nil
}

// rows splits a 2-D (or higher) C-ordered array into its leading-axis rows.
func (a *ndarray) rows() ([][]byte, error) {
	if len(a.shape) < 2 {
		return nil, fmt.Errorf("expected a 2-D array, got shape %v", a.shape)
	}
	if a.fortran && a.shape[0] > 1 {
		return nil, fmt.Errorf("fortran ordered arrays are not supported")
	}
	rowLen := 1
	for _, d := range a.shape[1:] {
		rowLen *= d
	}
	n := a.shape[0]
	if len(a.data) != n*rowLen {
		return nil, fmt.Errorf("array data has %d bytes, shape %v needs %d", len(a.data), a.shape, n*rowLen)
	}
	out := make([][]byte, n)
	for i := 0; i < n; i++ {
		out[i] = a.data[i*rowLen : (i+1)*rowLen]
	}
	return out, nil
}

func asSlice(v interface{}) ([]interface{}, bool) {
	switch t := v.(type) {
	case *types.Tuple:
		return []interface{}(*t), true
	case *types.List:
		return []interface{}(*t), true
	case []interface{}:
		return t, true
	}
	return nil, false
}

func asString(v interface{}) (string, bool) {
	switch t := v.(type) {
	case string:
		return t, true
	case []byte:
		return string(t), true
	}
	return "", false
}

func asBytes(v interface{}) ([]byte, bool) {
	switch t := v.(type) {
	case []byte:
		return t, true
	case string:
		return []byte(t), true
	}
	return nil, false
}

func asInt(v interface{}) (int, bool) {
	switch t := v.(type) {
	case int:
		return t, true
	case int64:
		return int(t), true
	case int32:
		return int(t), true
	}
	return 0, false
}

func asBool(v interface{}) bool {
	switch t := v.(type) {
	case bool:
		return t
	case int:
		return t != 0
	}
	return false
}
