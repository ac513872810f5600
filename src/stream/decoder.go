package stream

import (
	"bytes"
	"encoding/json"
	"fmt"

	"watershed-sync/src/helpers"
	"watershed-sync/src/models"
)

// -----------------------------------------------------------------------------
// RecordScanner decodes the worker's record stream incrementally. The stream
// is a concatenation of JSON objects with no framing between them, delivered
// in arbitrary chunk sizes, so the scanner tracks brace depth byte by byte
// and emits each record the moment its closing brace arrives. Splitting the
// same bytes differently never changes what is emitted.
// -----------------------------------------------------------------------------

type RecordScanner struct {
	emit func(*models.MSiteRecord) error

	buf      bytes.Buffer
	depth    int
	inString bool
	escaped  bool
	failed   error
}

// -----------------------------------------------------------------------------

func NewRecordScanner(emit func(*models.MSiteRecord) error) *RecordScanner {
	return &RecordScanner{emit: emit}
}

// -----------------------------------------------------------------------------

// Feed consumes the next chunk of the stream. Records completed inside the
// chunk are emitted before Feed returns. Once Feed has failed, the scanner
// stays failed and every later call returns the same error.
func (s *RecordScanner) Feed(p []byte) error {
	if s.failed != nil {
		return s.failed
	}

	for _, b := range p {
		if s.depth == 0 {
			// Between records. Anything that is not an opening brace is
			// separator noise and gets dropped.
			if b != '{' {
				continue
			}
			s.depth = 1
			s.buf.Reset()
			s.buf.WriteByte(b)
			continue
		}

		s.buf.WriteByte(b)

		if s.inString {
			switch {
			case s.escaped:
				s.escaped = false
			case b == '\\':
				s.escaped = true
			case b == '"':
				s.inString = false
			}
			continue
		}

		switch b {
		case '"':
			s.inString = true
		case '{':
			s.depth++
		case '}':
			s.depth--
			if s.depth == 0 {
				if err := s.complete(); err != nil {
					s.failed = err
					return err
				}
			}
		}
	}
	return nil
}

// -----------------------------------------------------------------------------

// Close checks that the stream did not end mid-record.
func (s *RecordScanner) Close() error {
	if s.failed != nil {
		return s.failed
	}
	if s.depth != 0 {
		s.failed = helpers.NewProviderError(
			fmt.Sprintf("record stream ended mid-object with %d bytes pending", s.buf.Len()), nil)
		return s.failed
	}
	return nil
}

// -----------------------------------------------------------------------------

// complete decodes the buffered object. An object carrying a message field
// is the provider reporting failure in-band, which kills the whole stream.
func (s *RecordScanner) complete() error {
	raw := s.buf.Bytes()

	var envelope struct {
		Message *string `json:"message"`
	}
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return helpers.NewProviderError("record stream carried an undecodable object", err)
	}
	if envelope.Message != nil {
		return helpers.NewProviderError(*envelope.Message, nil)
	}

	var rec models.MSiteRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return helpers.NewProviderError("record stream carried an undecodable record", err)
	}
	s.buf.Reset()
	return s.emit(&rec)
}
