package qc

import (
	"compress/gzip"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestParseTimeline(t *testing.T) {
	input := "" +
		"2024-03-01 10:05:00.250000,20,2000\n" +
		"2024-03-01 10:00:00,10,1000\n" +
		"garbage line\n" +
		"2024-03-01 10:10:00.5,5,500\n"

	rows, err := ParseTimeline(strings.NewReader(input))
	if err != nil {
		t.Fatalf("ParseTimeline() error: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(rows))
	}

	wantReads := []int64{10, 30, 35}
	wantBases := []int64{1000, 3000, 3500}
	for i, r := range rows {
		if r.CumulativeReads != wantReads[i] || r.CumulativeBases != wantBases[i] {
			t.Errorf("row %d cumulative = %d/%d, want %d/%d",
				i, r.CumulativeReads, r.CumulativeBases, wantReads[i], wantBases[i])
		}
	}
	if rows[0].Time.Minute() != 0 || rows[2].Time.Nanosecond() != 500_000_000 {
		t.Errorf("unexpected ordering or fractions: %v", rows)
	}
	if TotalReads(rows) != 35 {
		t.Errorf("TotalReads() = %d", TotalReads(rows))
	}
}

func TestLoadTimelineMissing(t *testing.T) {
	rows, err := LoadTimeline(filepath.Join(t.TempDir(), "cumul_qc.txt"))
	if err != nil {
		t.Fatalf("LoadTimeline() error: %v", err)
	}
	if len(rows) != 1 || rows[0].Reads != 0 || rows[0].CumulativeReads != 0 {
		t.Errorf("expected one zero row, got %+v", rows)
	}
}

func TestLoadTimelineEmptyFile(t *testing.T) {
	// The pipeline creates the file before the first batch is written.
	path := filepath.Join(t.TempDir(), "cumul_qc.txt")
	writeFile(t, path, "")

	rows, err := LoadTimeline(path)
	if err != nil {
		t.Fatalf("LoadTimeline() error: %v", err)
	}
	if len(rows) != 1 || rows[0].Reads != 0 {
		t.Errorf("expected one zero row, got %+v", rows)
	}
}

func TestLoadTimelineCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cumul_qc.txt")
	writeFile(t, path, "\x1f\x8b\x00\x00\x00\x00\x00\x00\x00\x00")

	if _, err := LoadTimeline(path); err == nil {
		t.Error("expected error for a broken gzip header")
	}
}

func TestAppendTimelineRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cumul_qc.txt")
	first := time.Date(2024, 3, 1, 10, 0, 0, 123456000, time.UTC)

	if err := AppendTimeline(path, TimelineRow{Time: first, Reads: 4, Bases: 400}); err != nil {
		t.Fatal(err)
	}
	if err := AppendTimeline(path, TimelineRow{Time: first.Add(time.Minute), Reads: 6, Bases: 600}); err != nil {
		t.Fatal(err)
	}

	rows, err := LoadTimeline(path)
	if err != nil {
		t.Fatalf("LoadTimeline() error: %v", err)
	}
	if len(rows) != 2 || !rows[0].Time.Equal(first) || TotalReads(rows) != 10 {
		t.Errorf("unexpected rows %+v", rows)
	}
}

func TestLoadFastp(t *testing.T) {
	path := filepath.Join(t.TempDir(), "compiled_fastp.txt")
	writeFile(t, path, "80,10,5,5\n70,20,0,10\n")

	f, err := LoadFastp(path)
	if err != nil {
		t.Fatalf("LoadFastp() error: %v", err)
	}
	want := FastpRow{Passed: 150, LowQuality: 30, TooManyN: 5, TooShort: 15}
	if f.Total() != want {
		t.Errorf("Total() = %+v, want %+v", f.Total(), want)
	}

	s := Summarize(f, 200)
	if s.Removed != 50 || s.PassedPercent != 75 || s.RemovedPercent != 25 {
		t.Errorf("unexpected summary %+v", s)
	}
	if s.LowQualityPercent != 60 || s.TooManyNPercent != 10 || s.TooShortPercent != 30 {
		t.Errorf("unexpected removal split %+v", s)
	}
}

func TestLoadFastpMissing(t *testing.T) {
	f, err := LoadFastp(filepath.Join(t.TempDir(), "compiled_fastp.txt"))
	if err != nil {
		t.Fatalf("LoadFastp() error: %v", err)
	}

	s := Summarize(f, 0)
	if s.PassedPercent != 0 || s.RemovedPercent != 0 || s.LowQualityPercent != 0 {
		t.Errorf("expected zero percentages, got %+v", s)
	}
}

func TestLoadFastpEmptyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "compiled_fastp.txt")
	writeFile(t, path, "")

	f, err := LoadFastp(path)
	if err != nil {
		t.Fatalf("LoadFastp() error: %v", err)
	}
	if len(f.Batches) != 1 || len(f.Cumulative) != 1 || f.Total() != (FastpRow{}) {
		t.Errorf("expected one zero batch, got %+v", f)
	}
}

func TestScanBatch(t *testing.T) {
	dir := t.TempDir()
	fastq := "" +
		"@read1\nACGTACGTAC\n+\nIIIIIIIIII\n" +
		"@read2\nACGTN\n+\nIIIII\n"

	t.Run("plain", func(t *testing.T) {
		path := filepath.Join(dir, "batch.fastq")
		writeFile(t, path, fastq)

		row, err := ScanBatch(path)
		if err != nil {
			t.Fatalf("ScanBatch() error: %v", err)
		}
		if row.Reads != 2 || row.Bases != 15 {
			t.Errorf("got %d reads, %d bases", row.Reads, row.Bases)
		}
	})

	t.Run("gzip", func(t *testing.T) {
		path := filepath.Join(dir, "batch.fastq.gz")
		f, err := os.Create(path)
		if err != nil {
			t.Fatal(err)
		}
		zw := gzip.NewWriter(f)
		if _, err := zw.Write([]byte(fastq)); err != nil {
			t.Fatal(err)
		}
		if err := zw.Close(); err != nil {
			t.Fatal(err)
		}
		if err := f.Close(); err != nil {
			t.Fatal(err)
		}

		row, err := ScanBatch(path)
		if err != nil {
			t.Fatalf("ScanBatch() error: %v", err)
		}
		if row.Reads != 2 || row.Bases != 15 {
			t.Errorf("got %d reads, %d bases", row.Reads, row.Bases)
		}
	})

	t.Run("missing", func(t *testing.T) {
		if _, err := ScanBatch(filepath.Join(dir, "missing.fastq")); err == nil {
			t.Error("expected error")
		}
	})
}
