package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/fatih/color"

	"github.com/ritzau/taxflow/pkg/hierarchy"
	"github.com/ritzau/taxflow/pkg/projections"
	"github.com/ritzau/taxflow/pkg/qc"
)

const report = "" +
	" 10.00\t100\t100\tU\t0\tunclassified\n" +
	" 90.00\t900\t5\tR\t1\troot\n" +
	" 80.00\t800\t10\tD\t2\t  Bacteria\n" +
	" 60.00\t600\t0\tP\t1224\t    Proteobacteria\n" +
	" 50.00\t500\t500\tS\t562\t      Escherichia coli\n" +
	" 10.00\t100\t100\tS\t28901\t      Salmonella enterica\n" +
	"  5.00\t50\t50\tD\t10239\t  Viruses\n"

func init() {
	color.NoColor = true
}

// setup creates a project directory with a report and makes it the working directory.
func setup(t *testing.T, withReport bool) string {
	t.Helper()
	dir := t.TempDir()
	chdir(t, dir)
	if !withReport {
		return dir
	}
	if err := os.MkdirAll(filepath.Join(dir, "kraken_cumul"), 0o755); err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(dir, "kraken_cumul", "kraken_cumul_report.kreport2")
	if err := os.WriteFile(path, []byte(report), 0o644); err != nil {
		t.Fatal(err)
	}
	return dir
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestTopListJSON(t *testing.T) {
	setup(t, true)

	out, err := run(t, "toplist", "--size", "1", "--format", "json")
	if err != nil {
		t.Fatalf("toplist failed: %v\n%s", err, out)
	}
	var entries []projections.TopEntry
	if err := json.Unmarshal([]byte(out), &entries); err != nil {
		t.Fatalf("output is not json: %v\n%s", err, out)
	}
	if len(entries) != 1 || entries[0].Name != "Escherichia coli" {
		t.Errorf("unexpected entries %+v", entries)
	}
}

func TestTopListRanks(t *testing.T) {
	setup(t, true)

	out, err := run(t, "toplist", "--ranks", "D")
	if err != nil {
		t.Fatalf("toplist failed: %v", err)
	}
	if !strings.Contains(out, "Viruses") || strings.Contains(out, "Escherichia coli") {
		t.Errorf("expected domain rows only:\n%s", out)
	}
}

func TestSankeyText(t *testing.T) {
	setup(t, true)

	out, err := run(t, "sankey", "--ranks", "D,P,S", "--top", "1", "--domains", "Bacteria")
	if err != nil {
		t.Fatalf("sankey failed: %v", err)
	}
	if !strings.Contains(out, "Proteobacteria -> Escherichia coli") {
		t.Errorf("missing link:\n%s", out)
	}
	if strings.Contains(out, "Salmonella enterica") {
		t.Errorf("top 1 should drop the second species:\n%s", out)
	}
}

func TestSankeyWaitingForReport(t *testing.T) {
	setup(t, false)

	out, err := run(t, "sankey", "--format", "yaml")
	if err != nil {
		t.Fatalf("sankey failed: %v", err)
	}
	if !strings.Contains(out, hierarchy.PlaceholderLabel) || !strings.Contains(out, "placeholder: true") {
		t.Errorf("expected placeholder diagram:\n%s", out)
	}
}

func TestSunburst(t *testing.T) {
	setup(t, true)

	out, err := run(t, "sunburst", "--ranks", "D,S", "--min-reads", "60")
	if err != nil {
		t.Fatalf("sunburst failed: %v", err)
	}
	if !strings.Contains(out, "  Escherichia coli [S] 500") {
		t.Errorf("species should be nested under its domain:\n%s", out)
	}
	if strings.Contains(out, "Viruses") {
		t.Errorf("entries at or below min reads should be dropped:\n%s", out)
	}
}

func TestInterestFromConfig(t *testing.T) {
	dir := setup(t, true)
	cfg := `species_of_interest:
  - name: Escherichia coli
    taxid: 562
  - name: Bacillus anthracis
    taxid: 1392
`
	if err := os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(cfg), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.MkdirAll(filepath.Join(dir, "blast_result_files"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "blast_result_files", "562.txt"), []byte("r1\tx\nr2\tx\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	out, err := run(t, "interest", "--validate")
	if err != nil {
		t.Fatalf("interest failed: %v", err)
	}
	for _, want := range []string{"WARNING  Escherichia coli", "validated 2", "CLEAR    Bacillus anthracis"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestQCBatch(t *testing.T) {
	dir := setup(t, false)
	fastq := filepath.Join(dir, "batch.fastq")
	if err := os.WriteFile(fastq, []byte("@r1\nACGT\n+\nIIII\n@r2\nACG\n+\nIII\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	qcFile := filepath.Join(dir, "cumul_qc.txt")

	if _, err := run(t, "qc-batch", fastq, qcFile); err != nil {
		t.Fatalf("qc-batch failed: %v", err)
	}
	rows, err := qc.LoadTimeline(qcFile)
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 1 || rows[0].Reads != 2 || rows[0].Bases != 7 {
		t.Errorf("unexpected timeline %+v", rows)
	}
}

func TestInvalidFlags(t *testing.T) {
	setup(t, true)

	for _, args := range [][]string{
		{"toplist", "--format", "xml"},
		{"sankey", "--top", "0"},
		{"sankey", "--ranks", "D,X"},
		{"sankey", "--domains", "Plantae"},
		{"qc-batch", "only-one-arg"},
	} {
		if _, err := run(t, args...); err == nil {
			t.Errorf("%v: expected error", args)
		}
	}
}
