package source

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"os"
)

// ReadCSV loads a delimited extract. The first skip lines are report
// banners (title, run date) and are discarded before the column header.
// Blank rows are dropped; a file without data rows is an error.
func ReadCSV(source, path string, skip int, required []string) (*Table, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, &SourceError{Source: source, Err: fmt.Errorf("open %s: %w", path, err)}
	}
	defer file.Close()

	t, err := readCSV(source, file, skip, required)
	if err != nil {
		return nil, err
	}
	t.Path = path
	return t, nil
}

func readCSV(source string, r io.Reader, skip int, required []string) (*Table, error) {
	bufReader := bufio.NewReaderSize(r, 256*1024)

	// Skip UTF-8 BOM if present
	bom, err := bufReader.Peek(3)
	if err == nil && len(bom) >= 3 && bom[0] == 0xEF && bom[1] == 0xBB && bom[2] == 0xBF {
		bufReader.Discard(3)
	}

	line := 0
	for line < skip {
		_, err := bufReader.ReadString('\n')
		if err == io.EOF {
			return nil, &SourceError{Source: source, Err: fmt.Errorf("%w: file ends inside %d banner lines", ErrEmptySource, skip)}
		}
		if err != nil {
			return nil, &SourceError{Source: source, Err: fmt.Errorf("skip banner line %d: %w", line+1, err)}
		}
		line++
	}

	reader := csv.NewReader(bufReader)
	reader.LazyQuotes = true
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err == io.EOF {
		return nil, &SourceError{Source: source, Err: fmt.Errorf("%w: missing column header", ErrEmptySource)}
	}
	if err != nil {
		return nil, &SourceError{Source: source, Row: line + 1, Err: fmt.Errorf("read header: %w", err)}
	}

	var rows [][]string
	var lines []int
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, &SourceError{Source: source, Err: fmt.Errorf("read row: %w", err)}
		}
		if len(row) == 0 || blankRow(row) {
			continue
		}
		pos, _ := reader.FieldPos(0)
		rows = append(rows, row)
		lines = append(lines, pos+line)
	}

	return NewTable(source, header, rows, lines, required)
}
