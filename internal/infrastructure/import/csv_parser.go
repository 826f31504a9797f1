package csvimport

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/simplifiedchinese"
	"golang.org/x/text/transform"
)

// Supported source encodings
const (
	EncodingUTF8        = "utf-8"
	EncodingGBK         = "gbk"
	EncodingGB18030     = "gb18030"
	EncodingWindows1252 = "windows-1252"
	EncodingLatin1      = "iso-8859-1"
)

// LookupEncoding resolves an encoding name. Empty and utf-8 return nil,
// meaning no transcoding.
func LookupEncoding(name string) (encoding.Encoding, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", EncodingUTF8, "utf8":
		return nil, nil
	case EncodingGBK:
		return simplifiedchinese.GBK, nil
	case EncodingGB18030:
		return simplifiedchinese.GB18030, nil
	case EncodingWindows1252, "cp1252":
		return charmap.Windows1252, nil
	case EncodingLatin1, "latin1":
		return charmap.ISO8859_1, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedEncoding, name)
	}
}

// NormalizeHeader folds a header to its matching key: lower case with
// spaces, underscores and dashes removed. "WarehouseId" and "warehouse_id"
// both become "warehouseid".
func NormalizeHeader(h string) string {
	var b strings.Builder
	b.Grow(len(h))
	for _, r := range strings.ToLower(strings.TrimSpace(h)) {
		switch r {
		case ' ', '_', '-':
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// CSVParser reads a CSV upload row by row, keyed by normalized header
type CSVParser struct {
	delimiter  rune
	lazyQuotes bool
	encoding   encoding.Encoding
	maxRows    int
	headerMap  map[string]int
	headers    []string
	currentRow int
	totalRows  int
	reader     *csv.Reader
}

// ParserOption is a functional option for CSVParser configuration
type ParserOption func(*CSVParser)

// WithDelimiter sets the field delimiter (default is comma)
func WithDelimiter(d rune) ParserOption {
	return func(p *CSVParser) {
		p.delimiter = d
	}
}

// WithLazyQuotes enables lazy quote handling
func WithLazyQuotes(lazy bool) ParserOption {
	return func(p *CSVParser) {
		p.lazyQuotes = lazy
	}
}

// WithEncoding transcodes the input from enc to UTF-8 before parsing
func WithEncoding(enc encoding.Encoding) ParserOption {
	return func(p *CSVParser) {
		p.encoding = enc
	}
}

// WithMaxRows limits the number of data rows; zero means unlimited
func WithMaxRows(n int) ParserOption {
	return func(p *CSVParser) {
		p.maxRows = n
	}
}

// NewCSVParser creates a new CSV parser from a reader
func NewCSVParser(r io.Reader, opts ...ParserOption) (*CSVParser, error) {
	parser := &CSVParser{
		delimiter:  ',',
		lazyQuotes: true,
		headerMap:  make(map[string]int),
	}
	for _, opt := range opts {
		opt(parser)
	}

	if parser.encoding != nil {
		r = transform.NewReader(r, parser.encoding.NewDecoder())
	}
	br := bufio.NewReader(r)

	// UTF-8 BOM: 0xEF, 0xBB, 0xBF
	head, err := br.Peek(3)
	if err != nil && err != io.EOF {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	if bytes.HasPrefix(head, []byte{0xEF, 0xBB, 0xBF}) {
		_, _ = br.Discard(3)
	}

	if err := validateUTF8(br); err != nil {
		return nil, err
	}

	parser.reader = csv.NewReader(br)
	parser.reader.Comma = parser.delimiter
	parser.reader.LazyQuotes = parser.lazyQuotes
	parser.reader.TrimLeadingSpace = true
	parser.reader.FieldsPerRecord = -1
	return parser, nil
}

// ParseFromBytes creates a parser from a byte slice
func ParseFromBytes(data []byte, opts ...ParserOption) (*CSVParser, error) {
	return NewCSVParser(bytes.NewReader(data), opts...)
}

func validateUTF8(r *bufio.Reader) error {
	const checkSize = 4096
	content, err := r.Peek(checkSize)
	if err != nil && err != io.EOF {
		return fmt.Errorf("failed to read file for encoding validation: %w", err)
	}
	if len(bytes.TrimSpace(content)) == 0 {
		return ErrEmptyFile
	}
	// A multi-byte rune may straddle the peek window
	if len(content) == checkSize {
		for i := 0; i < utf8.UTFMax && len(content) > 0 && !utf8.Valid(content); i++ {
			content = content[:len(content)-1]
		}
	}
	if !utf8.Valid(content) {
		return ErrInvalidEncoding
	}
	return nil
}

// ParseHeader reads the header row
func (p *CSVParser) ParseHeader() error {
	record, err := p.reader.Read()
	if err == io.EOF {
		return ErrMissingHeader
	}
	if err != nil {
		return fmt.Errorf("failed to read header: %w", err)
	}

	p.headers = make([]string, 0, len(record))
	for i, h := range record {
		key := NormalizeHeader(h)
		p.headers = append(p.headers, key)
		if key == "" {
			continue
		}
		if _, dup := p.headerMap[key]; dup {
			return fmt.Errorf("%w: column %q appears twice", ErrInvalidHeader, strings.TrimSpace(h))
		}
		p.headerMap[key] = i
	}
	if len(p.headerMap) == 0 {
		return ErrMissingHeader
	}

	p.currentRow = 1
	return nil
}

// Headers returns the normalized header names in file order
func (p *CSVParser) Headers() []string {
	return p.headers
}

// HasHeader checks if a header exists. name is normalized first.
func (p *CSVParser) HasHeader(name string) bool {
	_, ok := p.headerMap[NormalizeHeader(name)]
	return ok
}

// ValidateHeaders returns the required headers missing from the file
func (p *CSVParser) ValidateHeaders(required []string) []string {
	var missing []string
	for _, h := range required {
		if !p.HasHeader(h) {
			missing = append(missing, h)
		}
	}
	return missing
}

// Row is one parsed data row
type Row struct {
	// LineNumber is the 1-based data row number, the header not counted
	LineNumber int
	Data       map[string]string
}

// Get returns the value of a column; name is normalized first
func (r *Row) Get(name string) string {
	return r.Data[NormalizeHeader(name)]
}

// GetOrDefault returns the value for a column, or def if blank
func (r *Row) GetOrDefault(name, def string) string {
	if v := r.Get(name); v != "" {
		return v
	}
	return def
}

// IsEmpty returns true if the row has no non-empty values
func (r *Row) IsEmpty() bool {
	for _, v := range r.Data {
		if v != "" {
			return false
		}
	}
	return true
}

// ReadRow reads the next row from the CSV
func (p *CSVParser) ReadRow() (*Row, error) {
	record, err := p.reader.Read()
	if err == io.EOF {
		return nil, io.EOF
	}
	p.currentRow++
	if err != nil {
		return nil, fmt.Errorf("error reading row %d: %w", p.currentRow-1, err)
	}
	p.totalRows++

	row := &Row{
		LineNumber: p.currentRow - 1,
		Data:       make(map[string]string, len(p.headerMap)),
	}
	for key, i := range p.headerMap {
		if i < len(record) {
			row.Data[key] = strings.TrimSpace(record[i])
		} else {
			row.Data[key] = ""
		}
	}
	return row, nil
}

// ReadAllRows reads all remaining non-empty rows
func (p *CSVParser) ReadAllRows() ([]*Row, error) {
	var rows []*Row
	for {
		row, err := p.ReadRow()
		if err == io.EOF {
			break
		}
		if err != nil {
			return rows, err
		}
		if row.IsEmpty() {
			continue
		}
		if p.maxRows > 0 && len(rows) >= p.maxRows {
			return rows, fmt.Errorf("%w: limit is %d", ErrTooManyRows, p.maxRows)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// TotalRows returns the number of data rows read, empty rows included
func (p *CSVParser) TotalRows() int {
	return p.totalRows
}
