package admin

import (
	"bufio"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"sort"

	"github.com/vmihailenco/msgpack/v5"
)

// WriteRecordsJSONL writes the nested document of each record as a JSON line.
func WriteRecordsJSONL(w io.Writer, records []*Record) error {
	enc := json.NewEncoder(w)
	for _, rec := range records {
		if err := enc.Encode(rec.Document()); err != nil {
			return err
		}
	}
	return nil
}

// ReadRecordsJSONL reads documents from a JSON lines stream.
func ReadRecordsJSONL(r io.Reader, fn func(doc map[string]any) error) error {
	dec := json.NewDecoder(bufio.NewReader(r))
	for {
		var doc map[string]any
		if err := dec.Decode(&doc); err != nil {
			if err == io.EOF {
				return nil
			}
			return err
		}
		if err := fn(doc); err != nil {
			return err
		}
	}
}

// WriteRecordsMsgpack writes documents in MessagePack format as an array stream.
func WriteRecordsMsgpack(w io.Writer, records []*Record) error {
	enc := msgpack.NewEncoder(w)
	if err := enc.EncodeArrayLen(len(records)); err != nil {
		return err
	}
	for _, rec := range records {
		if err := enc.Encode(rec.Document()); err != nil {
			return err
		}
	}
	return nil
}

// ReadRecordsMsgpack reads documents encoded as an array.
func ReadRecordsMsgpack(r io.Reader, fn func(doc map[string]any) error) error {
	dec := msgpack.NewDecoder(r)
	n, err := dec.DecodeArrayLen()
	if err != nil {
		return err
	}
	for i := 0; i < n; i++ {
		doc, err := dec.DecodeMap()
		if err != nil {
			return fmt.Errorf("record %d: %w", i, err)
		}
		if err := fn(normalizeMsgpack(doc).(map[string]any)); err != nil {
			return err
		}
	}
	return nil
}

// normalizeMsgpack widens decoded numbers to float64 the way JSON decoding
// does, so both formats import the same values.
func normalizeMsgpack(v any) any {
	switch x := v.(type) {
	case map[string]any:
		for k, sub := range x {
			x[k] = normalizeMsgpack(sub)
		}
		return x
	case []any:
		for i, sub := range x {
			x[i] = normalizeMsgpack(sub)
		}
		return x
	case int8:
		return float64(x)
	case int16:
		return float64(x)
	case int32:
		return float64(x)
	case int64:
		return float64(x)
	case uint8:
		return float64(x)
	case uint16:
		return float64(x)
	case uint32:
		return float64(x)
	case uint64:
		return float64(x)
	case float32:
		return float64(x)
	}
	return v
}

// WriteRecordsCSV writes the flattened params of records, one column per
// key seen in any record.
func WriteRecordsCSV(w io.Writer, records []*Record) error {
	seen := map[string]bool{}
	var header []string
	for _, rec := range records {
		for k := range rec.Params {
			if !seen[k] {
				seen[k] = true
				header = append(header, k)
			}
		}
	}
	sort.Strings(header)
	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return err
	}
	row := make([]string, len(header))
	for _, rec := range records {
		for i, k := range header {
			v, ok := rec.Params[k]
			switch {
			case !ok || v == nil:
				row[i] = ""
			default:
				row[i] = csvValue(v)
			}
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func csvValue(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case map[string]any, []any:
		b, _ := json.Marshal(x)
		return string(b)
	}
	return fmt.Sprint(v)
}
