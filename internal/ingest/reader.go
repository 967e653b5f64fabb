package ingest

import (
	"encoding/csv"
	"errors"
	"io"
	"iter"
)

// Field is one (header, value) pair of a row.
type Field struct {
	Header string
	Value  string
}

// Record is one data row paired positionally with the header. Line is the
// 1-based line where the row starts in the source file.
type Record struct {
	Line   int
	Fields []Field
}

// Get returns the value under header. When a header repeats, the right-most column wins.
func (r Record) Get(header string) (string, bool) {
	for i := len(r.Fields) - 1; i >= 0; i-- {
		if r.Fields[i].Header == header {
			return r.Fields[i].Value, true
		}
	}
	return "", false
}

// Map flattens the record for log output.
func (r Record) Map() map[string]string {
	m := make(map[string]string, len(r.Fields))
	for _, f := range r.Fields {
		m[f.Header] = f.Value
	}
	return m
}

// Parser reads delimited text with the first row as header.
// The zero value parses comma-separated input.
type Parser struct {
	Comma rune
}

func (p *Parser) newReader(r io.Reader) *csv.Reader {
	cr := csv.NewReader(r)
	if p != nil && p.Comma != 0 {
		cr.Comma = p.Comma
	}
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	return cr
}

// Count skips the header and counts the remaining rows without sanitizing them.
// Blank lines are not rows. Rows that are malformed still count, so the total
// matches the number of rows Records yields.
func (p *Parser) Count(r io.Reader) (int, error) {
	cr := p.newReader(r)
	cr.ReuseRecord = true

	if _, err := readHeader(cr); err != nil {
		return 0, err
	}

	count := 0
	for {
		_, err := cr.Read()
		if err == io.EOF {
			return count, nil
		}
		if err != nil && !isRowParseError(err) {
			return count, err
		}
		count++
	}
}

// Records reads the header eagerly and returns it along with a lazy sequence
// of sanitized rows. Rows shorter than the header are padded with empty values;
// longer rows are yielded with a *MappingError. A read failure is yielded once
// and ends the sequence.
func (p *Parser) Records(r io.Reader) ([]string, iter.Seq2[Record, error], error) {
	cr := p.newReader(r)

	raw, err := readHeader(cr)
	if err != nil {
		return nil, nil, err
	}
	header := make([]string, len(raw))
	for i, h := range raw {
		header[i] = Sanitize(h)
	}

	seq := func(yield func(Record, error) bool) {
		for {
			row, err := cr.Read()
			if err == io.EOF {
				return
			}
			if err != nil {
				var csvErr *csv.ParseError
				if !errors.As(err, &csvErr) {
					yield(Record{}, err)
					return
				}
				if !yield(Record{Line: csvErr.StartLine}, &ParseError{Kind: KindMalformed, Line: csvErr.StartLine, Err: csvErr.Err}) {
					return
				}
				continue
			}

			line, _ := cr.FieldPos(0)
			rec := Record{Line: line, Fields: make([]Field, len(header))}
			for i, h := range header {
				rec.Fields[i].Header = h
				if i < len(row) {
					rec.Fields[i].Value = Sanitize(row[i])
				}
			}
			if len(row) > len(header) {
				if !yield(rec, &MappingError{Kind: KindTooManyFields, Line: line, Got: len(row), Want: len(header)}) {
					return
				}
				continue
			}
			if !yield(rec, nil) {
				return
			}
		}
	}
	return header, seq, nil
}

func readHeader(cr *csv.Reader) ([]string, error) {
	header, err := cr.Read()
	if err == io.EOF {
		return nil, &ParseError{Kind: KindNoHeader, Line: 1}
	}
	if err != nil && isRowParseError(err) {
		return nil, &ParseError{Kind: KindNoHeader, Line: 1, Err: err}
	}
	return header, err
}

func isRowParseError(err error) bool {
	var csvErr *csv.ParseError
	return errors.As(err, &csvErr)
}
