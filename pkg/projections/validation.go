package projections

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/shenwei356/xopen"

	"github.com/ritzau/taxflow/pkg/logging"
)

// ValidatedReads counts the distinct query ids in the alignment result file
// <dir>/<taxid>.txt. A missing or empty file (no hits) counts as zero.
func ValidatedReads(dir, taxid string) (int, error) {
	path := filepath.Join(dir, taxid+".txt")
	info, err := os.Stat(path)
	if os.IsNotExist(err) || (err == nil && info.Size() == 0) {
		return 0, nil
	}

	fh, err := xopen.Ropen(path)
	if errors.Is(err, xopen.ErrNoContent) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("open validation file %s: %w", path, err)
	}
	defer func() { _ = fh.Close() }()

	seen := make(map[string]struct{})
	scanner := bufio.NewScanner(fh)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}
		query, _, _ := strings.Cut(line, "\t")
		seen[query] = struct{}{}
	}
	if err := scanner.Err(); err != nil {
		return 0, fmt.Errorf("reading validation file %s: %w", path, err)
	}

	return len(seen), nil
}

// Validate fills the Validated column of table in place. Species without
// reads get 0 without touching the file system. Unreadable files degrade
// to 0 and are logged.
func Validate(table []InterestRow, dir string) {
	for i := range table {
		n := 0
		if table[i].Reads > 0 {
			var err error
			n, err = ValidatedReads(dir, table[i].TaxID)
			if err != nil {
				logging.Warn("validation count unavailable", "taxid", table[i].TaxID, "error", err)
				n = 0
			}
		}
		table[i].Validated = &n
	}
}
