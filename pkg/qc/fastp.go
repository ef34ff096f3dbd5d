package qc

import (
	"bufio"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/shenwei356/xopen"

	"github.com/ritzau/taxflow/pkg/logging"
)

// FastpRow holds the filter counts of one batch.
type FastpRow struct {
	Passed     int64 `json:"passed_filter_reads"`
	LowQuality int64 `json:"low_quality_reads"`
	TooManyN   int64 `json:"too_many_N_reads"`
	TooShort   int64 `json:"too_short_reads"`
}

// Removed is the number of reads dropped for any reason.
func (r FastpRow) Removed() int64 {
	return r.LowQuality + r.TooManyN + r.TooShort
}

func (r FastpRow) add(o FastpRow) FastpRow {
	return FastpRow{
		Passed:     r.Passed + o.Passed,
		LowQuality: r.LowQuality + o.LowQuality,
		TooManyN:   r.TooManyN + o.TooManyN,
		TooShort:   r.TooShort + o.TooShort,
	}
}

// Fastp is the compiled fastp table with running totals.
type Fastp struct {
	Batches    []FastpRow `json:"batches"`
	Cumulative []FastpRow `json:"cumulative"`
}

// Total returns the last cumulative row.
func (f *Fastp) Total() FastpRow {
	if len(f.Cumulative) == 0 {
		return FastpRow{}
	}
	return f.Cumulative[len(f.Cumulative)-1]
}

// LoadFastp reads the compiled fastp file (passed,low_quality,too_many_N,too_short
// per line). A missing or empty file yields one zero row.
func LoadFastp(path string) (*Fastp, error) {
	if noContent(path) {
		return PlaceholderFastp(), nil
	}

	fh, err := xopen.Ropen(path)
	if errors.Is(err, xopen.ErrNoContent) {
		return PlaceholderFastp(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("open fastp file %s: %w", path, err)
	}
	defer func() { _ = fh.Close() }()

	f := &Fastp{}
	scanner := bufio.NewScanner(fh)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		row, err := parseFastpLine(line)
		if err != nil {
			logging.Debug("skipping malformed fastp line", "line", lineNo, "error", err)
			continue
		}
		f.Batches = append(f.Batches, row)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading fastp file %s: %w", path, err)
	}

	if len(f.Batches) == 0 {
		f.Batches = []FastpRow{{}}
	}
	var total FastpRow
	for _, b := range f.Batches {
		total = total.add(b)
		f.Cumulative = append(f.Cumulative, total)
	}
	return f, nil
}

// PlaceholderFastp holds one zero batch.
func PlaceholderFastp() *Fastp {
	return &Fastp{Batches: []FastpRow{{}}, Cumulative: []FastpRow{{}}}
}

func parseFastpLine(line string) (FastpRow, error) {
	cols := strings.Split(line, ",")
	if len(cols) != 4 {
		return FastpRow{}, fmt.Errorf("expected 4 columns, got %d", len(cols))
	}

	var vals [4]int64
	for i, c := range cols {
		v, err := strconv.ParseInt(strings.TrimSpace(c), 10, 64)
		if err != nil {
			return FastpRow{}, fmt.Errorf("column %d: %w", i+1, err)
		}
		vals[i] = v
	}
	return FastpRow{Passed: vals[0], LowQuality: vals[1], TooManyN: vals[2], TooShort: vals[3]}, nil
}

// FilterSummary is the filtering overview: totals and percentages rounded to
// one decimal. Passed and removed are relative to the reads seen before
// filtering; the removal reasons are relative to the removed reads.
type FilterSummary struct {
	PreFilterReads    int64   `json:"pre_filter_reads"`
	Passed            int64   `json:"passed"`
	Removed           int64   `json:"removed"`
	LowQuality        int64   `json:"low_quality"`
	TooManyN          int64   `json:"too_many_n"`
	TooShort          int64   `json:"too_short"`
	PassedPercent     float64 `json:"passed_percent"`
	RemovedPercent    float64 `json:"removed_percent"`
	LowQualityPercent float64 `json:"low_quality_percent"`
	TooManyNPercent   float64 `json:"too_many_n_percent"`
	TooShortPercent   float64 `json:"too_short_percent"`
}

// Summarize combines fastp totals with the pre-filter read count from the timeline.
func Summarize(f *Fastp, preFilterReads int64) FilterSummary {
	total := f.Total()
	s := FilterSummary{
		PreFilterReads: preFilterReads,
		Passed:         total.Passed,
		Removed:        total.Removed(),
		LowQuality:     total.LowQuality,
		TooManyN:       total.TooManyN,
		TooShort:       total.TooShort,
	}

	s.PassedPercent = percent(s.Passed, preFilterReads)
	s.RemovedPercent = percent(s.Removed, preFilterReads)
	s.LowQualityPercent = percent(s.LowQuality, s.Removed)
	s.TooManyNPercent = percent(s.TooManyN, s.Removed)
	s.TooShortPercent = percent(s.TooShort, s.Removed)
	return s
}

func percent(part, whole int64) float64 {
	if whole == 0 {
		return 0
	}
	return math.Round(float64(part)*1000/float64(whole)) / 10
}
