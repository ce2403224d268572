package fixture

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/hashicorp/go-multierror"
	"gopkg.in/yaml.v3"

	"github.com/roach88/setfield/internal/store"
)

// Decode reads a fixture in format from r. Unknown object keys are
// rejected.
func Decode(r io.Reader, format Format) ([]*store.Record, error) {
	var records []*store.Record
	switch format {
	case JSON:
		dec := json.NewDecoder(r)
		dec.DisallowUnknownFields()
		if err := dec.Decode(&records); err != nil {
			return nil, fmt.Errorf("decode json fixture: %w", err)
		}
	case YAML:
		dec := yaml.NewDecoder(r)
		dec.KnownFields(true)
		if err := dec.Decode(&records); err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("decode yaml fixture: %w", err)
		}
	default:
		return nil, fmt.Errorf("decode fixture: unsupported format %s", format)
	}

	for i, rec := range records {
		if rec == nil {
			return nil, fmt.Errorf("decode fixture: object %d is null", i)
		}
		if rec.Model == "" {
			return nil, fmt.Errorf("decode fixture: object %d has no model", i)
		}
	}
	return records, nil
}

// Encode writes records to w in format. indent is the number of spaces per
// nesting level. 0 writes compact JSON, or YAML at yaml.v3's default indent.
func Encode(w io.Writer, records []*store.Record, format Format, indent int) error {
	if records == nil {
		records = []*store.Record{}
	}
	switch format {
	case JSON:
		var (
			data []byte
			err  error
		)
		if indent > 0 {
			data, err = json.MarshalIndent(records, "", strings.Repeat(" ", indent))
		} else {
			data, err = json.Marshal(records)
		}
		if err != nil {
			return fmt.Errorf("encode json fixture: %w", err)
		}
		if _, err := w.Write(append(data, '\n')); err != nil {
			return fmt.Errorf("write fixture: %w", err)
		}
		return nil
	case YAML:
		enc := yaml.NewEncoder(w)
		if indent > 0 {
			enc.SetIndent(indent)
		}
		if err := enc.Encode(records); err != nil {
			return fmt.Errorf("encode yaml fixture: %w", err)
		}
		return enc.Close()
	default:
		return fmt.Errorf("encode fixture: unsupported format %s", format)
	}
}

// ReadFile decodes the fixture at path, decompressing by extension.
func ReadFile(path string) ([]*store.Record, error) {
	format, comp, err := Detect(path)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open fixture: %w", err)
	}

	r, err := decompressReader(f, comp)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("fixture %s: %w", path, err)
	}

	records, err := decodeAndClose(r, format, &multiCloser{closers: []io.Closer{r, f}})
	if err != nil {
		return nil, fmt.Errorf("fixture %s: %w", path, err)
	}
	return records, nil
}

// decodeAndClose decodes r and then closes c. A close error is appended to
// any decode error and discards the records.
func decodeAndClose(r io.Reader, format Format, c io.Closer) (records []*store.Record, err error) {
	defer func() {
		if cerr := c.Close(); cerr != nil {
			err = multierror.Append(err, cerr)
			records = nil
		}
	}()
	return Decode(r, format)
}

// WriteFile encodes records to path, compressing by extension. Nothing is
// written unless encoding succeeds.
func WriteFile(path string, records []*store.Record, indent int) error {
	format, comp, err := Detect(path)
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	cw, err := compressWriter(&buf, comp)
	if err != nil {
		return fmt.Errorf("fixture %s: %w", path, err)
	}
	if err := Encode(cw, records, format, indent); err != nil {
		cw.Close()
		return fmt.Errorf("fixture %s: %w", path, err)
	}
	if err := cw.Close(); err != nil {
		return fmt.Errorf("fixture %s: flush: %w", path, err)
	}

	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("write fixture: %w", err)
	}
	return nil
}

// Load reads every fixture in paths and writes all of their records with a
// single store.Load, so one invalid object anywhere leaves the database
// unchanged. Returns the number of objects installed.
func Load(ctx context.Context, s *store.Store, paths ...string) (int, error) {
	var all []*store.Record
	for _, path := range paths {
		records, err := ReadFile(path)
		if err != nil {
			return 0, err
		}
		all = append(all, records...)
	}

	n, err := s.Load(ctx, all)
	if err != nil {
		return 0, fmt.Errorf("load fixtures: %w", err)
	}
	return n, nil
}

// Dump returns every row of the named models, model by model in the order
// given and by primary key within a model. With no labels every model in the
// schema is dumped, sorted by label.
func Dump(ctx context.Context, s *store.Store, labels ...string) ([]*store.Record, error) {
	if len(labels) == 0 {
		for _, m := range s.Schema().Models() {
			labels = append(labels, m.Label)
		}
	}

	var out []*store.Record
	for _, label := range labels {
		records, err := s.All(ctx, label)
		if err != nil {
			return nil, fmt.Errorf("dump %s: %w", label, err)
		}
		out = append(out, records...)
	}
	return out, nil
}
