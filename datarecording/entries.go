package datarecording

// Table names of the run index.
const (
	RunsTable     = "runs"
	StatsTable    = "stats"
	ExecInfoTable = "exec_info"
)

// RunEntry is a row of the runs table.
type RunEntry struct {
	ID              string
	RunName         string
	Kind            string
	Timestamp       string
	ExitCode        int
	DurationSeconds float64
	Command         string
	Status          string
}

// StatEntry is a row of the stats table. Values that are not finite numbers
// are kept in Text.
type StatEntry struct {
	RunID string
	Key   string
	Value float64
	Text  string
}

// ExecInfo is a property of the recording process.
type ExecInfo struct {
	Property string
	Value    string
}
