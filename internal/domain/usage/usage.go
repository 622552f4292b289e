// Package usage builds the anonymized usage records written after each
// successful scheduling run.
package usage

import (
	"bufio"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"
)

// HashLen is the number of hex characters kept from each digest.
const HashLen = 8

// TimeLayout formats the record timestamp, microsecond precision.
const TimeLayout = "2006-01-02 15:04:05.000000"

// LogPrefix marks usage lines in the application log.
const LogPrefix = "OH_SCHED RUNNING:"

// Record is one anonymized run: when it happened and who took part.
type Record struct {
	At     time.Time
	Hashes []string
}

// HashID returns the truncated SHA-256 hex digest of id.
func HashID(id string) string {
	sum := sha256.Sum256([]byte(id))
	return hex.EncodeToString(sum[:])[:HashLen]
}

// NewRecord hashes every participant identifier. Raw identifiers are not
// retained.
func NewRecord(at time.Time, ids []string) Record {
	hashes := make([]string, len(ids))
	for i, id := range ids {
		hashes[i] = HashID(id)
	}
	return Record{At: at, Hashes: hashes}
}

// Line renders the record as "<timestamp>,<hash>,<hash>...".
func (r Record) Line() string {
	parts := make([]string, 0, len(r.Hashes)+1)
	parts = append(parts, r.At.Format(TimeLayout))
	parts = append(parts, r.Hashes...)
	return strings.Join(parts, ",")
}

// ParseLine is the inverse of Line.
func ParseLine(line string) (Record, error) {
	fields := strings.Split(strings.TrimSpace(line), ",")
	at, err := time.Parse(TimeLayout, fields[0])
	if err != nil {
		return Record{}, fmt.Errorf("%w: %w", ErrMalformedLine, err)
	}
	hashes := fields[1:]
	for _, h := range hashes {
		if len(h) != HashLen {
			return Record{}, fmt.Errorf("%w: hash %q has length %d", ErrMalformedLine, h, len(h))
		}
	}
	return Record{At: at, Hashes: hashes}, nil
}

// ReadLines returns every non-blank line of r; used to merge downloaded
// records into one CSV.
func ReadLines(r io.Reader) ([]string, error) {
	var lines []string
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		if line := strings.TrimSpace(sc.Text()); line != "" {
			lines = append(lines, line)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read usage lines: %w", err)
	}
	return lines, nil
}

// Merge parses the lines of every source and returns the records ordered
// by time. Malformed lines are counted and skipped.
func Merge(sources ...io.Reader) ([]Record, int, error) {
	var records []Record
	skipped := 0
	for _, src := range sources {
		lines, err := ReadLines(src)
		if err != nil {
			return nil, skipped, err
		}
		for _, line := range lines {
			rec, err := ParseLine(line)
			if err != nil {
				skipped++
				continue
			}
			records = append(records, rec)
		}
	}
	sort.SliceStable(records, func(i, j int) bool { return records[i].At.Before(records[j].At) })
	return records, skipped, nil
}

// WriteCSV writes one line per record.
func WriteCSV(w io.Writer, records []Record) error {
	bw := bufio.NewWriter(w)
	for _, rec := range records {
		if _, err := bw.WriteString(rec.Line() + "\n"); err != nil {
			return fmt.Errorf("write usage csv: %w", err)
		}
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("write usage csv: %w", err)
	}
	return nil
}
