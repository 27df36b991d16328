package ingest

import (
	"fmt"
	"regexp"
	"strings"
)

// Record maps lower-cased header names to raw field values for one CSV row.
type Record map[string]string

// Schema describes the expected shape of an uploaded CSV file.
type Schema struct {
	// Required columns must appear in the header and be non-empty in every row.
	Required []string
	// Defaults fill optional columns that are empty or absent from the header.
	Defaults map[string]string
}

// EmptyInputError signals a payload without a header plus at least one data row.
type EmptyInputError struct{}

func (e *EmptyInputError) Error() string {
	return "csv must contain a header row and at least one data row"
}

// MissingColumnError names the first required column absent from the header.
type MissingColumnError struct {
	Column string
}

func (e *MissingColumnError) Error() string {
	return fmt.Sprintf("missing required column: %s", e.Column)
}

// RowShapeError reports a row whose field count cannot be reconciled with the header.
type RowShapeError struct {
	Row     int
	Columns int
	Headers int
}

func (e *RowShapeError) Error() string {
	return fmt.Sprintf("row %d has %d columns but should have %d", e.Row, e.Columns, e.Headers)
}

// MissingValueError reports an empty required field, naming column and row.
type MissingValueError struct {
	Column string
	Row    int
}

func (e *MissingValueError) Error() string {
	return fmt.Sprintf("missing required value for %s in row %d", e.Column, e.Row)
}

var lineSplitter = regexp.MustCompile(`\r?\n`)

// Parse tokenizes a CSV payload into ordered records validated against the schema.
// The whole parse aborts on the first row-level failure; callers never receive
// partial results. Row numbers in errors are 1-based with the header as row 1.
func Parse(content string, schema Schema) ([]Record, error) {
	content = strings.TrimPrefix(content, "\uFEFF")

	lines := make([]string, 0)
	for _, line := range lineSplitter.Split(content, -1) {
		if strings.TrimSpace(line) != "" {
			lines = append(lines, line)
		}
	}

	if len(lines) < 2 {
		return nil, &EmptyInputError{}
	}

	headers := parseLine(lines[0])
	for i, header := range headers {
		headers[i] = strings.ToLower(strings.TrimSpace(header))
	}

	headerSet := make(map[string]struct{}, len(headers))
	for _, header := range headers {
		headerSet[header] = struct{}{}
	}
	for _, required := range schema.Required {
		if _, ok := headerSet[required]; !ok {
			return nil, &MissingColumnError{Column: required}
		}
	}

	requiredSet := make(map[string]struct{}, len(schema.Required))
	for _, required := range schema.Required {
		requiredSet[required] = struct{}{}
	}

	records := make([]Record, 0, len(lines)-1)
	for i := 1; i < len(lines); i++ {
		row := i + 1
		values := parseLine(lines[i])

		// Tolerate trailing-comma omission for optional fields.
		for len(values) < len(headers) {
			values = append(values, "")
		}
		if len(values) != len(headers) {
			return nil, &RowShapeError{Row: row, Columns: len(values), Headers: len(headers)}
		}

		record := make(Record, len(headers))
		for col, header := range headers {
			value := values[col]
			if _, required := requiredSet[header]; required && value == "" {
				return nil, &MissingValueError{Column: header, Row: row}
			}
			if value == "" {
				value = schema.Defaults[header]
			}
			record[header] = value
		}

		// Defaults also apply when the column is missing from the header entirely.
		for column, fallback := range schema.Defaults {
			if _, ok := headerSet[column]; !ok {
				record[column] = fallback
			}
		}

		records = append(records, record)
	}

	return records, nil
}

// parseLine tokenizes one CSV line honoring double-quote delimited fields.
// A doubled quote inside a quoted field is a literal quote; a comma inside
// quotes is not a separator.
func parseLine(line string) []string {
	line = strings.TrimPrefix(line, "\uFEFF")

	values := make([]string, 0)
	var current strings.Builder
	insideQuotes := false

	runes := []rune(line)
	for i := 0; i < len(runes); i++ {
		switch {
		case runes[i] == '"':
			if insideQuotes && i+1 < len(runes) && runes[i+1] == '"' {
				current.WriteRune('"')
				i++
			} else {
				insideQuotes = !insideQuotes
			}
		case runes[i] == ',' && !insideQuotes:
			values = append(values, strings.TrimSpace(current.String()))
			current.Reset()
		default:
			current.WriteRune(runes[i])
		}
	}
	values = append(values, strings.TrimSpace(current.String()))

	for i, value := range values {
		values[i] = stripSurroundingQuotes(value)
	}
	return values
}

func stripSurroundingQuotes(value string) string {
	if len(value) >= 2 && strings.HasPrefix(value, `"`) && strings.HasSuffix(value, `"`) {
		return value[1 : len(value)-1]
	}
	return value
}
