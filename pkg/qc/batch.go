package qc

import (
	"fmt"
	"io"
	"os"

	"github.com/shenwei356/bio/seq"
	"github.com/shenwei356/bio/seqio/fastx"
)

// ScanBatch counts the sequences and bases of one FASTA/FASTQ batch file
// (plain or compressed). The row is stamped with the file's modification time.
func ScanBatch(path string) (TimelineRow, error) {
	info, err := os.Stat(path)
	if err != nil {
		return TimelineRow{}, fmt.Errorf("stat batch: %w", err)
	}

	reader, err := fastx.NewReader(seq.DNAredundant, path, fastx.DefaultIDRegexp)
	if err != nil {
		return TimelineRow{}, fmt.Errorf("open batch %s: %w", path, err)
	}
	defer reader.Close()

	row := TimelineRow{Time: info.ModTime()}
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return TimelineRow{}, fmt.Errorf("reading batch %s: %w", path, err)
		}
		row.Reads++
		row.Bases += int64(len(record.Seq.Seq))
	}

	row.CumulativeReads = row.Reads
	row.CumulativeBases = row.Bases
	return row, nil
}
