package bulk

import (
	"bufio"
	"bytes"
	"compress/gzip"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/franz/card-indexer/internal/util"
)

const (
	// ProgressInterval is how many records pass between advisory progress
	// callbacks during streaming
	ProgressInterval = 10000

	// scannerBufferSize bounds a single NDJSON line; bulk records can run
	// several hundred KB once legalities and prices are included
	scannerBufferSize = 4 * 1024 * 1024
)

// Stats counts what happened during one streaming pass.
// Skipped records are never fatal; they are reported in aggregate.
type Stats struct {
	Records        int // records delivered to the handler
	MissingID      int // records skipped because the id field was absent
	DecodeFailures int // NDJSON lines that failed to decode
}

// Handler receives each decoded record. Returning an error aborts the stream.
type Handler func(rec *Record) error

// ProgressFunc receives advisory progress checkpoints (total records so far)
type ProgressFunc func(count int)

// Parser streams records out of a bulk dataset file. The stream is forward
// only; restarting means calling Stream again (the file is reopened).
type Parser struct {
	Path       string
	WrapperKey string       // object key holding the record array in `{`-shaped files (default "data")
	OnProgress ProgressFunc // optional
}

// NewParser creates a parser for the given bulk dataset file
func NewParser(path string) *Parser {
	return &Parser{Path: path, WrapperKey: "data"}
}

// Stream decodes the file and calls handler once per valid record.
// Compression and top-level shape are detected from content, never from the
// file extension. Individual bad records are counted and skipped; a file that
// cannot be decoded in any attempted format is a SourceFormatError.
func (p *Parser) Stream(handler Handler) (*Stats, error) {
	gzipped, err := sniffGzip(p.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to sniff %s: %w", p.Path, err)
	}

	// Try the format matching the magic bytes first, then the alternate.
	// Covers gzip content without the .gz extension and vice versa.
	order := []bool{gzipped, !gzipped}
	attempts := make([]string, 0, 2)
	var lastErr error

	for _, useGzip := range order {
		stats, err := p.streamOnce(useGzip, handler)
		if err == nil {
			return stats, nil
		}
		if abort, ok := err.(*handlerAbort); ok {
			return stats, abort.err
		}
		attempts = append(attempts, formatName(useGzip))
		lastErr = err
		util.DebugLog("Bulk parse as %s failed: %v", formatName(useGzip), err)
	}

	return nil, &util.SourceFormatError{Path: p.Path, Attempts: attempts, Err: lastErr}
}

// handlerAbort wraps an error returned by the handler so it is not mistaken
// for a format error and retried under the alternate format
type handlerAbort struct{ err error }

func (h *handlerAbort) Error() string { return h.err.Error() }

func formatName(gzipped bool) string {
	if gzipped {
		return "gzip+json"
	}
	return "json"
}

// sniffGzip reports whether the file starts with the gzip magic bytes
func sniffGzip(path string) (bool, error) {
	f, err := os.Open(path)
	if err != nil {
		return false, err
	}
	defer f.Close()

	magic := make([]byte, 2)
	n, err := io.ReadFull(f, magic)
	if err != nil && n < 2 {
		// Files shorter than the magic cannot be gzip
		return false, nil
	}
	return magic[0] == 0x1f && magic[1] == 0x8b, nil
}

func (p *Parser) open(useGzip bool) (io.ReadCloser, error) {
	f, err := os.Open(p.Path)
	if err != nil {
		return nil, err
	}
	if !useGzip {
		return f, nil
	}
	gz, err := gzip.NewReader(f)
	if err != nil {
		f.Close()
		return nil, err
	}
	return &gzipFile{gz: gz, f: f}, nil
}

type gzipFile struct {
	gz *gzip.Reader
	f  *os.File
}

func (g *gzipFile) Read(b []byte) (int, error) { return g.gz.Read(b) }

func (g *gzipFile) Close() error {
	g.gz.Close()
	return g.f.Close()
}

// streamOnce runs a single pass in the given compression mode
func (p *Parser) streamOnce(useGzip bool, handler Handler) (*Stats, error) {
	rc, err := p.open(useGzip)
	if err != nil {
		return nil, err
	}

	br := bufio.NewReaderSize(rc, 256*1024)
	first, err := firstNonSpace(br)
	if err != nil {
		rc.Close()
		return nil, fmt.Errorf("empty or unreadable stream: %w", err)
	}

	switch first {
	case '[':
		defer rc.Close()
		return p.streamArray(br, handler)
	case '{':
		// Either a wrapper object holding the array, or NDJSON whose first
		// record happens to start the stream. Try the wrapper first; if the
		// wrapper key is absent, reopen and parse line-delimited.
		stats, err := p.streamWrapped(br, handler)
		rc.Close()
		if err == nil {
			return stats, nil
		}
		if abort, ok := err.(*handlerAbort); ok {
			return stats, abort
		}
		util.DebugLog("Wrapper-object parse failed (%v), retrying as line-delimited", err)
		rc, err = p.open(useGzip)
		if err != nil {
			return nil, err
		}
		defer rc.Close()
		return p.streamLines(bufio.NewReaderSize(rc, 256*1024), handler)
	default:
		rc.Close()
		return nil, fmt.Errorf("unexpected leading byte %q", first)
	}
}

// firstNonSpace peeks past leading whitespace without consuming the reader
func firstNonSpace(br *bufio.Reader) (byte, error) {
	for {
		b, err := br.ReadByte()
		if err != nil {
			return 0, err
		}
		switch b {
		case ' ', '\t', '\r', '\n':
			continue
		default:
			if err := br.UnreadByte(); err != nil {
				return 0, err
			}
			return b, nil
		}
	}
}

// streamArray decodes a top-level JSON array of records
func (p *Parser) streamArray(r io.Reader, handler Handler) (*Stats, error) {
	dec := json.NewDecoder(r)

	if _, err := dec.Token(); err != nil {
		return nil, fmt.Errorf("malformed array open: %w", err)
	}

	stats := &Stats{}
	for dec.More() {
		var rec Record
		if err := dec.Decode(&rec); err != nil {
			// Inside a JSON array a decode error means the document itself
			// is broken; there is no way to resynchronize
			return stats, fmt.Errorf("malformed record at index %d: %w", stats.Records, err)
		}
		if err := p.deliver(&rec, handler, stats); err != nil {
			return stats, err
		}
	}

	if _, err := dec.Token(); err != nil {
		return stats, fmt.Errorf("malformed array close: %w", err)
	}

	return stats, nil
}

// streamWrapped decodes a single object whose WrapperKey holds the record
// array. Other keys are skipped.
func (p *Parser) streamWrapped(r io.Reader, handler Handler) (*Stats, error) {
	dec := json.NewDecoder(r)

	if _, err := dec.Token(); err != nil {
		return nil, fmt.Errorf("malformed object open: %w", err)
	}

	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("malformed object key: %w", err)
		}
		key, ok := keyTok.(string)
		if !ok {
			return nil, fmt.Errorf("unexpected token %v in object", keyTok)
		}

		if key != p.WrapperKey {
			// Skip the value for keys we do not care about
			var skip json.RawMessage
			if err := dec.Decode(&skip); err != nil {
				return nil, fmt.Errorf("malformed value for key %q: %w", key, err)
			}
			continue
		}

		if _, err := dec.Token(); err != nil {
			return nil, fmt.Errorf("malformed %q array open: %w", key, err)
		}

		stats := &Stats{}
		for dec.More() {
			var rec Record
			if err := dec.Decode(&rec); err != nil {
				return stats, fmt.Errorf("malformed record at index %d: %w", stats.Records, err)
			}
			if err := p.deliver(&rec, handler, stats); err != nil {
				return stats, err
			}
		}
		return stats, nil
	}

	return nil, fmt.Errorf("wrapper key %q not found", p.WrapperKey)
}

// streamLines decodes line-delimited JSON. Individual undecodable lines are
// counted and skipped; the stream continues.
func (p *Parser) streamLines(r io.Reader, handler Handler) (*Stats, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), scannerBufferSize)

	stats := &Stats{}
	sawRecord := false

	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}

		var rec Record
		if err := json.Unmarshal(line, &rec); err != nil {
			stats.DecodeFailures++
			continue
		}
		sawRecord = true
		if err := p.deliver(&rec, handler, stats); err != nil {
			return stats, err
		}
	}
	if err := scanner.Err(); err != nil {
		return stats, fmt.Errorf("line scan failed: %w", err)
	}

	if !sawRecord && stats.DecodeFailures > 0 {
		// Every line failed: this is not a line-delimited file at all
		return stats, fmt.Errorf("no decodable records in %d lines", stats.DecodeFailures)
	}

	return stats, nil
}

// deliver validates a record and hands it to the handler
func (p *Parser) deliver(rec *Record, handler Handler, stats *Stats) error {
	if rec.ID == "" {
		stats.MissingID++
		return nil
	}

	if err := handler(rec); err != nil {
		return &handlerAbort{err: err}
	}

	stats.Records++
	if p.OnProgress != nil && stats.Records%ProgressInterval == 0 {
		p.OnProgress(stats.Records)
	}
	return nil
}

// StreamOracle decodes an oracle (augmentation) dataset file. The oracle file
// follows the same container conventions as the bulk file.
func StreamOracle(path string, handler func(rec *OracleRecord) error) (*Stats, error) {
	parser := NewParser(path)
	return parser.Stream(func(rec *Record) error {
		if rec.OracleID == "" {
			return nil
		}
		return handler(&OracleRecord{
			OracleID:      rec.OracleID,
			Name:          rec.Name,
			OracleText:    rec.OracleText,
			Keywords:      rec.Keywords,
			ColorIdentity: rec.ColorIdentity,
		})
	})
}
