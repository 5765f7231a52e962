// Package zonecsv reads the taxi zone lookup CSV against the fixed zone
// schema. Rows that do not fit the schema are handled according to the read
// mode instead of failing the whole load.
package zonecsv

import (
	"bufio"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"

	"github.com/sqlpipe/taxi-zone-cleaner/internal/zone"
)

// Mode selects how malformed rows are handled.
type Mode string

const (
	// Permissive keeps malformed rows with their raw text in CorruptRecord.
	Permissive Mode = "PERMISSIVE"
	// DropMalformed skips malformed rows.
	DropMalformed Mode = "DROPMALFORMED"
	// FailFast aborts the read on the first malformed row.
	FailFast Mode = "FAILFAST"
)

var (
	// ErrMalformedRow is returned in FailFast mode.
	ErrMalformedRow = errors.New("malformed row")
	// ErrMissingColumn is returned when the header lacks a business column.
	ErrMissingColumn = errors.New("missing column")
)

const progressEvery = 100000

// Options configures Read.
type Options struct {
	// Header marks the first row as a header. Columns are then bound by name.
	Header bool
	// Delimiter defaults to ','.
	Delimiter rune
	// NullValues are tokens read as absent in addition to the empty string.
	NullValues []string
	// Mode defaults to Permissive.
	Mode   Mode
	Logger *slog.Logger
}

// Stats describes a completed read.
type Stats struct {
	Rows      int
	Malformed int
	Dropped   int
}

// Read parses every data row of r. Only I/O errors, a bad header, a
// cancelled context or a malformed row in FailFast mode fail the read.
func Read(ctx context.Context, r io.Reader, opts Options) ([]zone.RawRecord, Stats, error) {
	var stats Stats

	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	mode := opts.Mode
	if mode == "" {
		mode = Permissive
	}

	nullValues := map[string]bool{"": true}
	for _, v := range opts.NullValues {
		nullValues[v] = true
	}

	comma := ','
	if opts.Delimiter != 0 {
		comma = opts.Delimiter
	}
	lines := &lineReader{r: bufio.NewReader(r)}

	b, err := bindColumns(lines, comma, opts.Header)
	if err == io.EOF {
		return nil, stats, nil
	}
	if err != nil {
		return nil, stats, err
	}

	var out []zone.RawRecord
	for {
		if stats.Rows%progressEvery == 0 {
			if err := ctx.Err(); err != nil {
				return nil, stats, err
			}
			if stats.Rows > 0 {
				logger.Debug("Reading CSV row", "line", stats.Rows)
			}
		}

		line, err := lines.next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, stats, fmt.Errorf("read csv: %w", err)
		}
		stats.Rows++

		fields, err := parseLine(line, comma)
		if err == nil {
			var rec zone.Record
			if rec, err = b.convert(fields, nullValues); err == nil {
				out = append(out, zone.RawRecord{Record: rec})
				continue
			}
		}

		stats.Malformed++
		switch mode {
		case FailFast:
			return nil, stats, fmt.Errorf("%w at row %d: %v", ErrMalformedRow, stats.Rows, err)
		case DropMalformed:
			stats.Dropped++
		default:
			out = append(out, zone.RawRecord{CorruptRecord: &line})
		}
	}

	return out, stats, nil
}

// parseLine parses one physical line. A quote left open does not continue
// onto the next line; the line is malformed instead.
func parseLine(line string, comma rune) ([]string, error) {
	cr := csv.NewReader(strings.NewReader(line))
	cr.Comma = comma
	cr.FieldsPerRecord = -1
	fields, err := cr.Read()
	if err == io.EOF {
		return []string{""}, nil
	}
	return fields, err
}

// binding maps each business column to its position in a row.
type binding struct {
	width int
	idx   [4]int
}

func bindColumns(lines *lineReader, comma rune, header bool) (binding, error) {
	if !header {
		return binding{width: len(zone.BusinessColumns), idx: [4]int{0, 1, 2, 3}}, nil
	}

	line, err := lines.next()
	if err == io.EOF {
		return binding{}, err
	}
	if err != nil {
		return binding{}, fmt.Errorf("read header: %w", err)
	}
	names, err := parseLine(line, comma)
	if err != nil {
		return binding{}, fmt.Errorf("read header: %w", err)
	}
	if len(names) > 0 {
		names[0] = strings.TrimPrefix(names[0], "\ufeff")
	}

	b := binding{width: len(names)}
	for i, col := range zone.BusinessColumns {
		b.idx[i] = -1
		for j, name := range names {
			if strings.EqualFold(strings.TrimSpace(name), col) {
				b.idx[i] = j
				break
			}
		}
		if b.idx[i] < 0 {
			return binding{}, fmt.Errorf("%w %q in header %v", ErrMissingColumn, col, names)
		}
	}
	return b, nil
}

func (b binding) convert(fields []string, nullValues map[string]bool) (zone.Record, error) {
	if len(fields) != b.width {
		return zone.Record{}, fmt.Errorf("expected %d fields, got %d", b.width, len(fields))
	}

	value := func(i int) *string {
		v := fields[b.idx[i]]
		if nullValues[v] {
			return nil
		}
		return &v
	}

	var rec zone.Record
	if v := value(0); v != nil {
		id, err := parseLocationID(*v)
		if err != nil {
			return zone.Record{}, err
		}
		rec.LocationID = &id
	}
	rec.Borough = value(1)
	rec.Zone = value(2)
	rec.ServiceZone = value(3)
	return rec, nil
}

// parseLocationID accepts a base-10 32-bit signed integer.
func parseLocationID(s string) (int32, error) {
	n, err := strconv.ParseInt(s, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("%s %q is not an integer", zone.ColLocationID, s)
	}
	return int32(n), nil
}

// lineReader yields physical lines without their line terminator, skipping
// empty lines.
type lineReader struct {
	r *bufio.Reader
}

func (l *lineReader) next() (string, error) {
	for {
		line, err := l.r.ReadString('\n')
		if err != nil && err != io.EOF {
			return "", err
		}
		if line == "" && err == io.EOF {
			return "", io.EOF
		}
		line = strings.TrimRight(line, "\r\n")
		if line != "" {
			return line, nil
		}
		if err == io.EOF {
			return "", io.EOF
		}
	}
}
