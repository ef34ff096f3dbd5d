// Package qc reads the quality-control tables written next to the report:
// per-batch read and base counts, and fastp filter statistics.
package qc

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/shenwei356/xopen"

	"github.com/ritzau/taxflow/pkg/logging"
)

// TimeLayout is the timestamp format of timeline files. Fractional seconds
// are optional when parsing.
const TimeLayout = "2006-01-02 15:04:05.000000"

const parseLayout = "2006-01-02 15:04:05"

// placeholderTime stamps the single zero row returned when no QC data exists.
var placeholderTime = time.Date(2023, 9, 25, 0, 0, 0, 0, time.UTC)

// TimelineRow is one processed batch with running totals.
type TimelineRow struct {
	Time            time.Time `json:"time"`
	Reads           int64     `json:"reads"`
	Bases           int64     `json:"bp"`
	CumulativeReads int64     `json:"cumulative_reads"`
	CumulativeBases int64     `json:"cumulative_bp"`
}

// LoadTimeline reads the cumulative QC file (time,reads,bp per line), sorts it
// by time and fills the running totals. A missing or empty file yields one
// zero row.
func LoadTimeline(path string) ([]TimelineRow, error) {
	if noContent(path) {
		return PlaceholderTimeline(), nil
	}

	fh, err := xopen.Ropen(path)
	if errors.Is(err, xopen.ErrNoContent) {
		return PlaceholderTimeline(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("open qc file %s: %w", path, err)
	}
	defer func() { _ = fh.Close() }()

	rows, err := ParseTimeline(fh)
	if err != nil {
		return nil, fmt.Errorf("qc file %s: %w", path, err)
	}
	if len(rows) == 0 {
		return PlaceholderTimeline(), nil
	}
	return rows, nil
}

// PlaceholderTimeline is the single zero row shown before any batch is processed.
func PlaceholderTimeline() []TimelineRow {
	return []TimelineRow{{Time: placeholderTime}}
}

// noContent reports whether path is absent or empty. The pipeline creates
// its QC files before the first batch is written.
func noContent(path string) bool {
	info, err := os.Stat(path)
	return os.IsNotExist(err) || (err == nil && info.Size() == 0)
}

// ParseTimeline parses timeline lines. Malformed lines are skipped.
func ParseTimeline(r io.Reader) ([]TimelineRow, error) {
	var rows []TimelineRow

	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		row, err := parseTimelineLine(line)
		if err != nil {
			logging.Debug("skipping malformed qc line", "line", lineNo, "error", err)
			continue
		}
		rows = append(rows, row)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].Time.Before(rows[j].Time)
	})

	var reads, bases int64
	for i := range rows {
		reads += rows[i].Reads
		bases += rows[i].Bases
		rows[i].CumulativeReads = reads
		rows[i].CumulativeBases = bases
	}
	return rows, nil
}

func parseTimelineLine(line string) (TimelineRow, error) {
	cols := strings.Split(line, ",")
	if len(cols) != 3 {
		return TimelineRow{}, fmt.Errorf("expected 3 columns, got %d", len(cols))
	}

	ts, err := time.Parse(parseLayout, strings.TrimSpace(cols[0]))
	if err != nil {
		return TimelineRow{}, fmt.Errorf("time: %w", err)
	}
	reads, err := strconv.ParseInt(strings.TrimSpace(cols[1]), 10, 64)
	if err != nil {
		return TimelineRow{}, fmt.Errorf("reads: %w", err)
	}
	bases, err := strconv.ParseInt(strings.TrimSpace(cols[2]), 10, 64)
	if err != nil {
		return TimelineRow{}, fmt.Errorf("bp: %w", err)
	}

	return TimelineRow{Time: ts, Reads: reads, Bases: bases}, nil
}

// AppendTimeline appends one batch line to the timeline file, creating it if needed.
func AppendTimeline(path string, row TimelineRow) error {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open qc file: %w", err)
	}

	w := bufio.NewWriter(f)
	fmt.Fprintf(w, "%s,%d,%d\n", row.Time.Format(TimeLayout), row.Reads, row.Bases)
	if err := w.Flush(); err != nil {
		_ = f.Close()
		return fmt.Errorf("write qc file: %w", err)
	}
	return f.Close()
}

// TotalReads returns the running read total of the last row.
func TotalReads(rows []TimelineRow) int64 {
	if len(rows) == 0 {
		return 0
	}
	return rows[len(rows)-1].CumulativeReads
}
