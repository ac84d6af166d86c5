package roots

import (
	"bufio"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/pkg/errors"
	"k8s.io/klog/v2"

	"github.com/abapaengine/core/internal/game"
)

// DefaultSignature is the signature line WriteFile emits by default.
const DefaultSignature = "Aalina Book 1.0"

// File is a read-only handle on a sorted, fixed-record opening-book file.
// Lookups binary-search the (parent_hash, child_hash) key order and read records
// on demand, so a lookup costs O(log N) seeks.
type File struct {
	f          *os.File
	payloadAt  int64
	numRecords int64
	headers    map[string]string
}

// OpenFile opens path for reading. I/O failures are returned as errors; callers at the
// search boundary should treat a failed open as "book unavailable" and
// fall back to no book, logging once.
func OpenFile(path string) (*File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "roots: opening book file %q", path)
	}
	r := bufio.NewReader(f)
	headers, consumed, err := readBookHeaders(r)
	if err != nil {
		f.Close()
		return nil, errors.Wrapf(err, "roots: reading header of %q", path)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, errors.Wrapf(err, "roots: stat %q", path)
	}
	payloadBytes := info.Size() - consumed
	if payloadBytes < 0 || payloadBytes%RecordSize != 0 {
		f.Close()
		return nil, errors.Errorf("roots: %q payload size %d is not a multiple of the %d-byte record", path, payloadBytes, RecordSize)
	}
	return &File{
		f:          f,
		payloadAt:  consumed,
		numRecords: payloadBytes / RecordSize,
		headers:    headers,
	}, nil
}

// Close releases the underlying file handle.
func (bf *File) Close() error { return bf.f.Close() }

func (bf *File) recordAt(i int64) (Record, error) {
	var buf [RecordSize]byte
	if _, err := bf.f.ReadAt(buf[:], bf.payloadAt+i*RecordSize); err != nil {
		return Record{}, errors.Wrapf(err, "roots: reading record %d", i)
	}
	return decodeRecord(buf[:]), nil
}

// Lookup returns every record whose ParentHash equals parent, via binary search on the
// sorted key followed by a forward scan over the matching run.
func (bf *File) Lookup(parent game.Hash) ([]Record, error) {
	lo, hi := int64(0), bf.numRecords
	for lo < hi {
		mid := (lo + hi) / 2
		rec, err := bf.recordAt(mid)
		if err != nil {
			return nil, err
		}
		if rec.ParentHash < parent {
			lo = mid + 1
		} else {
			hi = mid
		}
	}

	var out []Record
	for lo < bf.numRecords {
		rec, err := bf.recordAt(lo)
		if err != nil {
			return nil, err
		}
		if rec.ParentHash != parent {
			break
		}
		out = append(out, rec)
		lo++
	}
	return out, nil
}

// WriteFile writes records (any order; they are sorted here) to path under the given
// signature and header key/value pairs.
func WriteFile(path, signature string, headers map[string]string, records []Record) (err error) {
	sorted := append([]Record(nil), records...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Less(sorted[j]) })

	f, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "roots: creating book file %q", path)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = errors.Wrapf(cerr, "roots: closing book file %q", path)
		}
	}()

	w := bufio.NewWriter(f)
	fmt.Fprintf(w, "%s\r\n", signature)
	fmt.Fprintf(w, "Date: %s\r\n", time.Now().UTC().Format(time.RFC3339))
	fmt.Fprintf(w, "Records: %d\r\n", len(sorted))
	for k, v := range headers {
		fmt.Fprintf(w, "%s: %s\r\n", k, v)
	}
	fmt.Fprintf(w, "\r\n")
	for _, rec := range sorted {
		buf := rec.encode()
		if _, err := w.Write(buf[:]); err != nil {
			return errors.Wrapf(err, "roots: writing record to %q", path)
		}
	}
	return w.Flush()
}

// readBookHeaders reads the signature line and "Key: Value" header lines up to the
// blank separator, returning the parsed headers and the number of bytes consumed (so
// the caller can compute the binary payload's starting offset).
func readBookHeaders(r *bufio.Reader) (map[string]string, int64, error) {
	var consumed int64
	sig, err := r.ReadString('\n')
	if err != nil {
		return nil, 0, errors.Wrap(err, "reading signature line")
	}
	consumed += int64(len(sig))
	if !strings.Contains(sig, "Book") {
		klog.Warningf("roots: unexpected book signature line %q", strings.TrimSpace(sig))
	}

	headers := make(map[string]string)
	for {
		line, err := r.ReadString('\n')
		if err != nil {
			return nil, 0, errors.Wrap(err, "reading header line")
		}
		consumed += int64(len(line))
		trimmed := strings.TrimRight(line, "\r\n")
		if trimmed == "" {
			break
		}
		key, value, ok := strings.Cut(trimmed, ":")
		if !ok {
			continue
		}
		headers[strings.TrimSpace(key)] = strings.TrimSpace(value)
	}
	return headers, consumed, nil
}

// Headers exposes the parsed "Key: Value" header lines.
func (bf *File) Headers() map[string]string { return bf.headers }

// NumRecords reports the total record count in the file.
func (bf *File) NumRecords() int64 { return bf.numRecords }
