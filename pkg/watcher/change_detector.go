package watcher

// ChangeAnalysis describes which parts of the snapshot a batch of changes invalidates.
type ChangeAnalysis struct {
	NeedReport     bool // reparse the Kraken report and rebuild the hierarchy
	NeedQC         bool // reload QC timeline and fastp tables
	NeedValidation bool // recount BLAST-validated reads for species of interest
	ChangedFiles   []string
}

// Any reports whether anything needs reloading.
func (a *ChangeAnalysis) Any() bool {
	return a.NeedReport || a.NeedQC || a.NeedValidation
}

// Merge folds another analysis into a.
func (a *ChangeAnalysis) Merge(b *ChangeAnalysis) {
	a.NeedReport = a.NeedReport || b.NeedReport
	a.NeedQC = a.NeedQC || b.NeedQC
	a.NeedValidation = a.NeedValidation || b.NeedValidation
	a.ChangedFiles = append(a.ChangedFiles, b.ChangedFiles...)
}

// AnalyzeChanges determines what a change event invalidates.
func AnalyzeChanges(event ChangeEvent) *ChangeAnalysis {
	analysis := &ChangeAnalysis{
		ChangedFiles: event.Paths,
	}

	switch event.Type {
	case ChangeTypeReport:
		// New read counts change every projection including the interest
		// table, whose validated column is keyed by the same species.
		analysis.NeedReport = true
		analysis.NeedValidation = true

	case ChangeTypeQC:
		analysis.NeedQC = true

	case ChangeTypeBlast:
		analysis.NeedValidation = true
	}

	return analysis
}
