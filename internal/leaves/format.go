package leaves

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// signature is the textual header line identifying the file format.
const signature = "Abapa Tablebase 1.0"

// Save writes t to path using a textual-header-then-packed-bytes layout: a signature
// line, a date and entry-count header, a blank separator, then the raw byte table.
func (t *Tablebase) Save(path string) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "leaves: creating tablebase file %q", path)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = errors.Wrapf(cerr, "leaves: closing tablebase file %q", path)
		}
	}()

	w := bufio.NewWriter(f)
	fmt.Fprintf(w, "%s\r\n", signature)
	fmt.Fprintf(w, "Date: %s\r\n", time.Now().UTC().Format(time.RFC3339))
	fmt.Fprintf(w, "MaxSeeds: %d\r\n", t.maxSeeds)
	fmt.Fprintf(w, "Entries: %d\r\n", len(t.data))
	fmt.Fprintf(w, "\r\n")
	if _, err := w.Write(t.data); err != nil {
		return errors.Wrapf(err, "leaves: writing tablebase payload to %q", path)
	}
	return w.Flush()
}

// Load reads a Tablebase previously written by Save. I/O and parse failures are
// returned as errors, not panics; callers at the search boundary should treat a failed
// Load as "no tablebase available" and continue without one, logging once.
func Load(path string) (*Tablebase, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "leaves: opening tablebase file %q", path)
	}
	defer f.Close()

	r := bufio.NewReader(f)
	headers, err := readHeaders(r)
	if err != nil {
		return nil, errors.Wrapf(err, "leaves: reading header of %q", path)
	}
	maxSeeds, err := strconv.Atoi(headers["MaxSeeds"])
	if err != nil {
		return nil, errors.Wrapf(err, "leaves: malformed MaxSeeds header in %q", path)
	}
	wantEntries, err := strconv.Atoi(headers["Entries"])
	if err != nil {
		return nil, errors.Wrapf(err, "leaves: malformed Entries header in %q", path)
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.Wrapf(err, "leaves: reading tablebase payload of %q", path)
	}
	if len(data) != wantEntries {
		return nil, errors.Errorf("leaves: %q declares %d entries but contains %d bytes", path, wantEntries, len(data))
	}

	offsets := offsetsUpTo(maxSeeds)
	if want := offsets[maxSeeds+1] + 1; int64(len(data)) != want {
		return nil, errors.Errorf("leaves: %q entry count %d does not match MaxSeeds=%d (expected %d)", path, len(data), maxSeeds, want)
	}

	return &Tablebase{maxSeeds: maxSeeds, offsets: offsets, data: data}, nil
}

// readHeaders reads the signature line, the "Key: Value" header lines, and consumes the
// blank separator line, leaving r positioned at the start of the binary payload.
func readHeaders(r *bufio.Reader) (map[string]string, error) {
	sig, err := r.ReadString('\n')
	if err != nil {
		return nil, errors.Wrap(err, "reading signature line")
	}
	if !strings.HasPrefix(strings.TrimSpace(sig), "Abapa Tablebase") {
		klog.Warningf("leaves: unexpected signature line %q", strings.TrimSpace(sig))
	}

	headers := make(map[string]string)
	for {
		line, err := r.ReadString('\n')
		if err != nil {
			return nil, errors.Wrap(err, "reading header line")
		}
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
	return headers, nil
}
