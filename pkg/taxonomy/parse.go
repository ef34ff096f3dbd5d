package taxonomy

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/ritzau/taxflow/pkg/logging"
	"github.com/shenwei356/xopen"
)

// Column layouts of Kraken reports.
const (
	standardColumns  = 6 // percent, clade reads, reads, rank, taxid, name
	minimizerColumns = 8 // as above with two minimizer columns before rank
)

// LoadReport reads the report at path. Plain and compressed files are both accepted.
// A missing or empty file yields ErrNoData.
func LoadReport(path string) (*Report, error) {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return nil, ErrNoData
	}
	if err != nil {
		return nil, fmt.Errorf("stat report: %w", err)
	}
	if info.Size() == 0 {
		return nil, ErrNoData
	}

	fh, err := xopen.Ropen(path)
	if err != nil {
		return nil, fmt.Errorf("open report %s: %w", path, err)
	}
	defer func() { _ = fh.Close() }()

	return ParseReport(fh)
}

// ParseReport parses a tab-separated report. Malformed rows are skipped and
// counted; only read errors abort the parse.
func ParseReport(r io.Reader) (*Report, error) {
	report := &Report{}

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimRight(scanner.Text(), "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}

		row, err := parseRow(line)
		if err != nil {
			report.Skipped++
			logging.Debug("skipping malformed report row", "line", lineNo, "error", err)
			continue
		}
		report.Rows = append(report.Rows, row)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading report: %w", err)
	}

	if len(report.Rows) == 0 && report.Skipped == 0 {
		return nil, ErrNoData
	}
	return report, nil
}

func parseRow(line string) (Row, error) {
	cols := strings.Split(line, "\t")

	var rankCol int
	switch len(cols) {
	case standardColumns:
		rankCol = 3
	case minimizerColumns:
		rankCol = 5
	default:
		return Row{}, fmt.Errorf("expected %d or %d columns, got %d", standardColumns, minimizerColumns, len(cols))
	}

	percent, err := strconv.ParseFloat(strings.TrimSpace(cols[0]), 64)
	if err != nil {
		return Row{}, fmt.Errorf("percent: %w", err)
	}
	clade, err := parseCount(cols[1])
	if err != nil {
		return Row{}, fmt.Errorf("clade reads: %w", err)
	}
	reads, err := parseCount(cols[2])
	if err != nil {
		return Row{}, fmt.Errorf("reads: %w", err)
	}

	rank := strings.TrimSpace(cols[rankCol])
	if !ValidRankSymbol(rank) {
		return Row{}, fmt.Errorf("unexpected rank symbol %q", rank)
	}

	taxid := strings.TrimSpace(cols[rankCol+1])
	if taxid == "" {
		return Row{}, fmt.Errorf("empty taxid")
	}

	return Row{
		Percent:    percent,
		CladeReads: clade,
		Reads:      reads,
		Rank:       Rank(rank),
		TaxID:      taxid,
		Name:       strings.TrimSpace(cols[rankCol+2]),
	}, nil
}

func parseCount(s string) (int64, error) {
	n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return 0, err
	}
	if n < 0 {
		return 0, fmt.Errorf("negative count %d", n)
	}
	return n, nil
}
