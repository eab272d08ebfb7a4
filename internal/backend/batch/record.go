package batch

import (
	"fmt"
	"io"
	"strings"

	"github.com/nlpodyssey/gopickle/pickle"
	"github.com/nlpodyssey/gopickle/types"
)

// Record is the deserialized content of one batch member.
type Record struct {
	// Data holds one raw planar buffer per image.
	Data [][]byte
	// Filenames is parallel to Data, or nil when the batch carries no names.
	Filenames []string
	// BatchLabel is nil when the batch carries no label.
	BatchLabel *string
}

// IsBatchMember reports whether an archive member holds a batch record.
func IsBatchMember(name string) bool {
	return strings.Contains(name, "data_batch") ||
		strings.Contains(name, "test_batch") ||
		strings.Contains(name, "train")
}

// DecodeRecord unpickles one batch member.
func DecodeRecord(r io.Reader) (*Record, error) {
	u := pickle.NewUnpickler(r)
	u.FindClass = findClass
	obj, err := u.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to unpickle batch: %w", err)
	}

	dict, ok := obj.(*types.Dict)
	if !ok {
		return nil, fmt.Errorf("batch is a %T, want dict", obj)
	}

	rawData, ok := lookup(dict, "data")
	if !ok {
		return nil, fmt.Errorf("batch has no data entry")
	}
	data, err := dataRows(rawData)
	if err != nil {
		return nil, fmt.Errorf("invalid data entry: %w", err)
	}
	record := &Record{Data: data}

	if rawNames, ok := lookup(dict, "filenames"); ok {
		items, ok := asSlice(rawNames)
		if !ok {
			return nil, fmt.Errorf("filenames entry is a %T, want list", rawNames)
		}
		record.Filenames = make([]string, len(items))
		for i, item := range items {
			name, ok := asString(item)
			if !ok {
				return nil, fmt.Errorf("filename %d is a %T", i, item)
			}
			record.Filenames[i] = name
		}
	}

	if rawLabel, ok := lookup(dict, "batch_label"); ok {
		label, ok := asString(rawLabel)
		if !ok {
			return nil, fmt.Errorf("batch_label entry is a %T", rawLabel)
		}
		record.BatchLabel = &label
	}

	return record, nil
}

// lookup finds key in dict whether it was pickled as str or bytes.
func lookup(dict *types.Dict, key string) (interface{}, bool) {
	if v, ok := dict.Get(key); ok {
		return v, true
	}
	return dict.Get([]byte(key))
}

// dataRows accepts either a numpy matrix or a list of byte strings.
func dataRows(v interface{}) ([][]byte, error) {
	if arr, ok := v.(*ndarray); ok {
		return arr.rows()
	}
	items, ok := asSlice(v)
	if !ok {
		return nil, fmt.Errorf("unsupported data type %T", v)
	}
	rows := make([][]byte, len(items))
	for i, item := range items {
		b, ok := asBytes(item)
		if !ok {
			return nil, fmt.Errorf("row %d is a %T", i, item)
		}
		rows[i] = b
	}
	return rows, nil
}
