// Package persist is the persistence driver: it loads and saves each
// entity family to its own file with atomic replace, supporting two
// on-disk encodings, a pretty multi-document YAML form and a
// line-delimited JSON form, with the loader selecting by file extension
// and the saver always emitting one canonical form per path.
package persist

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Encoding names one of the two accepted on-disk record encodings.
type Encoding int

const (
	// LineDelimited is one JSON object per line (".jsonl"): compact,
	// append-friendly, the same shape as the activity journal.
	LineDelimited Encoding = iota
	// Pretty is YAML, one `---`-separated document per record (".yaml"):
	// human-editable, meant for files a user might hand-tune.
	Pretty
)

// Ext returns the canonical file extension this encoding is saved under.
func (e Encoding) Ext() string {
	switch e {
	case Pretty:
		return ".yaml"
	default:
		return ".jsonl"
	}
}

// candidateExts lists every extension Load will try, in the order it
// tries them, so a family file written under either encoding loads
// correctly regardless of which Encoding the current Driver prefers for
// writing.
var candidateExts = []struct {
	ext      string
	encoding Encoding
}{
	{".jsonl", LineDelimited},
	{".json", LineDelimited},
	{".yaml", Pretty},
	{".yml", Pretty},
}

// findFamilyFile looks in dir for a file named base plus any known
// extension, returning its path and encoding. ok is false if none exists.
func findFamilyFile(dir, base string) (path string, enc Encoding, ok bool) {
	for _, c := range candidateExts {
		p := filepath.Join(dir, base+c.ext)
		if _, err := os.Stat(p); err == nil {
			return p, c.encoding, true
		}
	}
	return "", 0, false
}

// SaveRecords encodes records under dir/base+encoding.Ext() and atomically
// replaces any existing file at that path. Any stale sibling file left over from a
// previous encoding choice is removed so a path never has two canonical
// files representing the same family.
func SaveRecords[T any](dir, base string, encoding Encoding, records []T) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("persist: create dir %s: %w", dir, err)
	}

	path := filepath.Join(dir, base+encoding.Ext())
	tmp := filepath.Join(dir, "."+base+".tmp")

	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("persist: open temp file for %s: %w", base, err)
	}

	writeErr := writeRecords(f, encoding, records)
	syncErr := f.Sync()
	closeErr := f.Close()

	if writeErr != nil {
		os.Remove(tmp)
		return fmt.Errorf("persist: encode %s: %w", base, writeErr)
	}
	if syncErr != nil {
		os.Remove(tmp)
		return fmt.Errorf("persist: fsync %s: %w", base, syncErr)
	}
	if closeErr != nil {
		os.Remove(tmp)
		return fmt.Errorf("persist: close temp file for %s: %w", base, closeErr)
	}

	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("persist: rename %s into place: %w", base, err)
	}

	for _, c := range candidateExts {
		if c.ext == encoding.Ext() {
			continue
		}
		os.Remove(filepath.Join(dir, base+c.ext))
	}
	return nil
}

func writeRecords[T any](w io.Writer, encoding Encoding, records []T) error {
	switch encoding {
	case Pretty:
		if len(records) == 0 {
			return nil
		}
		enc := yaml.NewEncoder(w)
		for _, r := range records {
			if err := enc.Encode(r); err != nil {
				return err
			}
		}
		return enc.Close()
	default:
		bw := bufio.NewWriter(w)
		for _, r := range records {
			b, err := json.Marshal(r)
			if err != nil {
				return err
			}
			if _, err := bw.Write(b); err != nil {
				return err
			}
			if err := bw.WriteByte('\n'); err != nil {
				return err
			}
		}
		return bw.Flush()
	}
}

// LoadRecords reads whichever family file exists at dir/base.* (either
// encoding), returning a nil slice if no such file exists.
func LoadRecords[T any](dir, base string) ([]T, error) {
	path, encoding, ok := findFamilyFile(dir, base)
	if !ok {
		return nil, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("persist: open %s: %w", path, err)
	}
	defer f.Close()

	switch encoding {
	case Pretty:
		return decodeYAML[T](f)
	default:
		return decodeJSONL[T](f)
	}
}

func decodeYAML[T any](r io.Reader) ([]T, error) {
	dec := yaml.NewDecoder(r)
	var out []T
	for {
		var v T
		if err := dec.Decode(&v); err != nil {
			if err == io.EOF {
				return out, nil
			}
			return out, fmt.Errorf("persist: decode yaml record: %w", err)
		}
		out = append(out, v)
	}
}

func decodeJSONL[T any](r io.Reader) ([]T, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	var out []T
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var v T
		if err := json.Unmarshal(line, &v); err != nil {
			return out, fmt.Errorf("persist: decode json line: %w", err)
		}
		out = append(out, v)
	}
	if err := scanner.Err(); err != nil {
		return out, fmt.Errorf("persist: scan: %w", err)
	}
	return out, nil
}

// RemoveFamily deletes every known encoding of dir/base, used when a
// per-series file is removed on series deletion.
func RemoveFamily(dir, base string) {
	for _, c := range candidateExts {
		os.Remove(filepath.Join(dir, base+c.ext))
	}
}
