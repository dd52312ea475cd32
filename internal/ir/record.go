package ir

// Tag column names appended to every trajectory row after the state variables.
const (
	ColumnRun      = "run"
	ColumnSubset   = "subset"
	ColumnTimestep = "timestep"
	ColumnSubstep  = "substep"
)

// TagColumns lists the tag columns in output order.
var TagColumns = []string{ColumnRun, ColumnSubset, ColumnTimestep, ColumnSubstep}

// Record is one flattened trajectory row.
type Record struct {
	Run      int   `json:"run"`
	Subset   int   `json:"subset"`
	Timestep int   `json:"timestep"`
	Substep  int   `json:"substep"`
	State    State `json:"state"`
}

// Table is the collated trajectory of an execution.
//
// Records are ordered by (subset, run, timestep, substep): grouped by
// session, then chronological. Downstream consumers rely on this order.
type Table struct {
	// Variables are the state variable names in declaration order.
	Variables []string `json:"variables"`

	Records []Record `json:"records"`
}

// Columns returns the full column contract: state variables, then tags.
func (t Table) Columns() []string {
	cols := make([]string, 0, len(t.Variables)+len(TagColumns))
	cols = append(cols, t.Variables...)
	cols = append(cols, TagColumns...)
	return cols
}

// Len returns the number of records.
func (t Table) Len() int {
	return len(t.Records)
}

// Row returns record i flattened in Columns() order.
func (t Table) Row(i int) []Value {
	r := t.Records[i]
	row := make([]Value, 0, len(t.Variables)+len(TagColumns))
	for _, k := range t.Variables {
		row = append(row, r.State.Get(k))
	}
	return append(row,
		Int(r.Run),
		Int(r.Subset),
		Int(r.Timestep),
		Int(r.Substep),
	)
}

// Session returns the records of one (run, subset) session in order.
func (t Table) Session(run, subset int) []Record {
	var out []Record
	for _, r := range t.Records {
		if r.Run == run && r.Subset == subset {
			out = append(out, r)
		}
	}
	return out
}
