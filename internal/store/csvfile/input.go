package csvfile

import (
	"context"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/ianaindex"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"github.com/JakeFAU/placescraper/internal/places"
)

// InputOptions describes the layout of the input file.
type InputOptions struct {
	// Encoding is an IANA charset name; empty means ISO-8859-1. A leading
	// UTF-8 or UTF-16 byte-order mark overrides it.
	Encoding    string
	IDColumn    int
	QueryColumn int
	// HasHeader skips the first row. Without it, a first row whose id cell is
	// a known id column name is still treated as a header.
	HasHeader bool
}

// ReadWorkItems reads (id, query) pairs from path. Values are trimmed; rows
// with an empty id or query, or too few columns, are skipped.
func ReadWorkItems(ctx context.Context, path string, opts InputOptions) ([]places.WorkItem, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open input: %w", err)
	}
	defer f.Close()
	return ParseWorkItems(ctx, f, opts)
}

// ParseWorkItems is ReadWorkItems over an arbitrary reader.
func ParseWorkItems(ctx context.Context, r io.Reader, opts InputOptions) ([]places.WorkItem, error) {
	enc, err := lookupEncoding(opts.Encoding)
	if err != nil {
		return nil, err
	}
	cr := newReader(transform.NewReader(r, unicode.BOMOverride(enc.NewDecoder())))
	need := max(opts.IDColumn, opts.QueryColumn)

	var items []places.WorkItem
	for line := 0; ; line++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read input line %d: %w", line+1, err)
		}
		if line == 0 {
			if len(row) > 0 {
				row[0] = stripBOM(row[0])
			}
			if opts.HasHeader || looksLikeHeader(row, opts.IDColumn) {
				continue
			}
		}
		if len(row) <= need {
			continue
		}
		id := strings.TrimSpace(row[opts.IDColumn])
		query := strings.TrimSpace(row[opts.QueryColumn])
		if id == "" || query == "" {
			continue
		}
		items = append(items, places.WorkItem{ID: id, Query: query})
	}
	return items, nil
}

func looksLikeHeader(row []string, idCol int) bool {
	if idCol >= len(row) {
		return false
	}
	return slices.Contains(places.IDColumnAliases, strings.ToLower(strings.TrimSpace(row[idCol])))
}

func lookupEncoding(name string) (encoding.Encoding, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "latin1", "latin-1", "iso-8859-1", "iso8859-1":
		return charmap.ISO8859_1, nil
	case "utf-8", "utf8":
		return unicode.UTF8, nil
	}
	enc, err := ianaindex.IANA.Encoding(name)
	if err != nil || enc == nil {
		return nil, fmt.Errorf("unsupported input encoding %q", name)
	}
	return enc, nil
}
