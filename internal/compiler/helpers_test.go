package compiler

import (
	"testing"

	"github.com/roach88/stepsim/internal/testutil"
)

// writeModel writes files (relative path → content) into a temp dir.
func writeModel(t *testing.T, files map[string]string) string {
	t.Helper()
	return testutil.WriteFiles(t, files)
}

const supplyCUE = `
package supply

model: {
	runs:           1
	timesteps_from: "supply_timeseries"
	initial_state: {
		timestamp: null
		supply:    0
	}
	params: {
		supply_timeseries: {table: "data/supply.csv"}
	}
	blocks: [{
		name: "ingest"
		policies: parse: {
			use: "table_row"
			with: {table: "supply_timeseries", rename: {date: "timestamp"}}
		}
		updates: {
			timestamp: {use: "assign"}
			supply:    {use: "assign"}
		}
	}]
}
`

const supplyCSV = `date,supply
2015-07-30,72049306.59
2015-07-31,72085596.47
2015-08-01,72113847.53
`
