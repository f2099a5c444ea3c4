package seq

import (
	"bufio"
	"bytes"
	"fmt"
	"io"

	"github.com/pkg/errors"
)

var (
	ErrMissingHeader   = errors.New("record header must start with '@' or '>'")
	ErrTruncatedRecord = errors.New("truncated record")
	ErrLengthMismatch  = errors.New("sequence and quality lengths differ")
)

// ReadFastq reads all FASTQ records from r.
//
// The reader is strict about the 4-line layout but tolerant about the '+'
// separator content, matching what real instruments emit.
func ReadFastq(r io.Reader) ([]Record, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	var records []Record
	line := 0

	for scanner.Scan() {
		header := scanner.Bytes()
		line++
		if len(bytes.TrimSpace(header)) == 0 {
			continue
		}
		if header[0] != '@' {
			return nil, errors.Wrapf(ErrMissingHeader, "line %d", line)
		}
		id := string(bytes.TrimSpace(header[1:]))

		sequence, err := scanLine(scanner, &line)
		if err != nil {
			return nil, errors.Wrapf(err, "record %q", id)
		}
		sep, err := scanLine(scanner, &line)
		if err != nil {
			return nil, errors.Wrapf(err, "record %q", id)
		}
		if len(sep) == 0 || sep[0] != '+' {
			return nil, errors.Errorf("record %q: separator line %d must start with '+'", id, line)
		}
		quality, err := scanLine(scanner, &line)
		if err != nil {
			return nil, errors.Wrapf(err, "record %q", id)
		}
		if len(quality) != len(sequence) {
			return nil, errors.Wrapf(ErrLengthMismatch, "record %q: %d vs %d", id, len(sequence), len(quality))
		}

		records = append(records, Fastq(id, sequence, quality))
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(err, "unable to scan fastq input")
	}

	return records, nil
}

// ReadFasta reads all FASTA records from r. Multi-line sequences are joined.
func ReadFasta(r io.Reader) ([]Record, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	var (
		records []Record
		id      string
		body    []byte
		started bool
	)

	flush := func() {
		if started {
			records = append(records, Fasta(id, body))
		}
	}

	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		if line[0] == '>' {
			flush()
			id = string(bytes.TrimSpace(line[1:]))
			body = nil
			started = true

			continue
		}
		if !started {
			return nil, ErrMissingHeader
		}
		body = append(body, line...)
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(err, "unable to scan fasta input")
	}
	flush()

	return records, nil
}

// WriteFastq writes records in 4-line FASTQ layout. Records without quality
// scores are rejected.
func WriteFastq(w io.Writer, records []Record) error {
	buf := bufio.NewWriter(w)
	for _, r := range records {
		if !r.HasQuality() {
			return errors.Errorf("record %q has no quality scores", r.ID)
		}
		if _, err := fmt.Fprintf(buf, "@%s\n%s\n+\n%s\n", r.ID, r.Sequence, r.Quality); err != nil {
			return errors.Wrapf(err, "unable to write record %q", r.ID)
		}
	}

	return errors.Wrap(buf.Flush(), "unable to flush fastq output")
}

// WriteFasta writes records in FASTA layout.
func WriteFasta(w io.Writer, records []Record) error {
	buf := bufio.NewWriter(w)
	for _, r := range records {
		if _, err := fmt.Fprintf(buf, ">%s\n%s\n", r.ID, r.Sequence); err != nil {
			return errors.Wrapf(err, "unable to write record %q", r.ID)
		}
	}

	return errors.Wrap(buf.Flush(), "unable to flush fasta output")
}

func scanLine(scanner *bufio.Scanner, line *int) ([]byte, error) {
	if !scanner.Scan() {
		if err := scanner.Err(); err != nil {
			return nil, err
		}

		return nil, ErrTruncatedRecord
	}
	*line++
	trimmed := bytes.TrimRight(scanner.Bytes(), "\r\n")
	out := make([]byte, len(trimmed))
	copy(out, trimmed)

	return out, nil
}
