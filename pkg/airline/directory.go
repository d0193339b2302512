// Package airline maps ICAO airline designators to airline names.
//
// The directory is built once from a reference dataset (a JSON array of
// {"ICAO": "...", "Airline": "..."} objects) and is read-only afterwards, so
// a single *Directory can be shared between goroutines.
package airline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"slices"
	"strings"
)

// Unknown is returned for codes the directory does not know.
const Unknown = "Unknown"

// ErrLoad wraps every failure of Load.
var ErrLoad = errors.New("failed to load airlines data")

// Record is one entry of the reference dataset.
type Record struct {
	ICAO    string `json:"ICAO"`
	Airline string `json:"Airline"`
}

// Directory is an immutable ICAO code to airline name lookup.
type Directory struct {
	names map[string]string
}

// NewDirectory builds a directory from records. Codes are trimmed and
// upper-cased, names trimmed. When a code appears more than once the later
// record wins. Records with a blank code are skipped.
func NewDirectory(records []Record) *Directory {
	names := make(map[string]string, len(records))
	for _, r := range records {
		code := normalize(r.ICAO)
		if code == "" {
			continue
		}
		names[code] = strings.TrimSpace(r.Airline)
	}
	return &Directory{names: names}
}

// Empty returns a directory with no entries.
func Empty() *Directory {
	return &Directory{names: map[string]string{}}
}

// Lookup returns the airline name for code, or Unknown. The query is trimmed
// and upper-cased, so " kLm " and "KLM" resolve identically.
func (d *Directory) Lookup(code string) string {
	if d == nil {
		return Unknown
	}
	if name, ok := d.names[normalize(code)]; ok {
		return name
	}
	return Unknown
}

// Len returns the number of distinct codes.
func (d *Directory) Len() int {
	if d == nil {
		return 0
	}
	return len(d.names)
}

// Records returns the directory contents sorted by code.
func (d *Directory) Records() []Record {
	if d == nil {
		return []Record{}
	}
	out := make([]Record, 0, len(d.names))
	for code, name := range d.names {
		out = append(out, Record{ICAO: code, Airline: name})
	}
	slices.SortFunc(out, func(a, b Record) int {
		return strings.Compare(a.ICAO, b.ICAO)
	})
	return out
}

func normalize(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// Load reads the dataset from source, which is either an http(s) URL or a
// file path. On any failure it returns an empty directory together with an
// error wrapping ErrLoad, so callers can warn and carry on.
func Load(ctx context.Context, source string, client *http.Client) (*Directory, error) {
	records, err := readRecords(ctx, source, client)
	if err != nil {
		return Empty(), fmt.Errorf("%w: %w", ErrLoad, err)
	}
	return NewDirectory(records), nil
}

func readRecords(ctx context.Context, source string, client *http.Client) ([]Record, error) {
	var r io.ReadCloser

	if strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://") {
		if client == nil {
			client = http.DefaultClient
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, source, nil)
		if err != nil {
			return nil, err
		}
		resp, err := client.Do(req)
		if err != nil {
			return nil, err
		}
		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			resp.Body.Close()
			return nil, fmt.Errorf("%s returned %s", source, resp.Status)
		}
		r = resp.Body
	} else {
		f, err := os.Open(source)
		if err != nil {
			return nil, err
		}
		r = f
	}
	defer r.Close()

	var records []Record
	if err := json.NewDecoder(r).Decode(&records); err != nil {
		return nil, fmt.Errorf("malformed dataset: %w", err)
	}
	return records, nil
}
