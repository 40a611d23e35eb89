package exchange

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"

	"github.com/dvloznov/cardcycle/internal/domain"
)

// Envelope frames one record on the wire. Data stays raw until the reader
// knows the type, so one malformed payload cannot poison the rest of the
// file.
type Envelope struct {
	Version int             `json:"v"`
	Type    RecordType      `json:"type"`
	Data    json.RawMessage `json:"data"`
}

// Writer emits enveloped records as JSON Lines.
type Writer struct {
	enc *json.Encoder
}

// NewWriter wraps w. The caller owns closing the underlying writer.
func NewWriter(w io.Writer) *Writer {
	return &Writer{enc: json.NewEncoder(w)}
}

// Write envelopes and emits one record.
func (w *Writer) Write(typ RecordType, record any) error {
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("exchange: marshal %s record: %w", typ, err)
	}
	env := Envelope{Version: FormatVersion, Type: typ, Data: data}
	if err := w.enc.Encode(&env); err != nil {
		return fmt.Errorf("exchange: write %s record: %w", typ, err)
	}
	return nil
}

// Reader scans enveloped records line by line. A line that fails to decode
// is reported as that line's error without disturbing subsequent lines,
// which is what lets the import executor isolate bad records.
type Reader struct {
	scanner *bufio.Scanner
	line    int
}

// NewReader wraps r.
func NewReader(r io.Reader) *Reader {
	sc := bufio.NewScanner(r)
	// Statement payloads carry full transaction lists; allow long lines.
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	return &Reader{scanner: sc}
}

// Next returns the next envelope, the 1-based line it came from, and an
// error. io.EOF signals a clean end of input. A decode or version error is
// returned with the line number and the reader stays usable.
func (r *Reader) Next() (*Envelope, int, error) {
	for r.scanner.Scan() {
		r.line++
		raw := r.scanner.Bytes()
		if len(raw) == 0 {
			continue
		}
		var env Envelope
		if err := json.Unmarshal(raw, &env); err != nil {
			return nil, r.line, fmt.Errorf("%w: line %d: %v", domain.ErrInvalidRecord, r.line, err)
		}
		if env.Version != FormatVersion {
			return nil, r.line, fmt.Errorf("%w: line %d: unsupported format version %d", domain.ErrInvalidRecord, r.line, env.Version)
		}
		return &env, r.line, nil
	}
	if err := r.scanner.Err(); err != nil {
		return nil, r.line, fmt.Errorf("exchange: read: %w", err)
	}
	return nil, r.line, io.EOF
}

// DecodeInto unmarshals the envelope payload into v.
func DecodeInto(env *Envelope, v any) error {
	if err := json.Unmarshal(env.Data, v); err != nil {
		return fmt.Errorf("%w: decode %s payload: %v", domain.ErrInvalidRecord, env.Type, err)
	}
	return nil
}
