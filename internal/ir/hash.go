package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefixes for content-addressed digests.
// The version suffix allows a future algorithm migration.
const (
	DomainTrajectory = "stepsim/trajectory/v1"
	DomainParams     = "stepsim/params/v1"
	DomainState      = "stepsim/state/v1"
)

// hashWithDomain computes SHA256(domain + 0x00 + data).
// The null byte prevents domain/data boundary ambiguity.
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// TableDigest computes the content digest of a trajectory table.
//
// Two executions of the same deterministic model produce the same digest.
// The digest covers variable order, every tag and every value.
func TableDigest(t Table) (string, error) {
	data, err := CanonicalTable(t)
	if err != nil {
		return "", fmt.Errorf("TableDigest: %w", err)
	}
	return hashWithDomain(DomainTrajectory, data), nil
}

// CanonicalTable renders a table as canonical JSON.
// Used for digests and golden files.
func CanonicalTable(t Table) ([]byte, error) {
	vars := make([]any, len(t.Variables))
	for i, v := range t.Variables {
		vars[i] = v
	}

	rows := make([]any, len(t.Records))
	for i, r := range t.Records {
		rows[i] = map[string]any{
			ColumnRun:      int64(r.Run),
			ColumnSubset:   int64(r.Subset),
			ColumnTimestep: int64(r.Timestep),
			ColumnSubstep:  int64(r.Substep),
			"state":        r.State,
		}
	}

	return MarshalCanonical(map[string]any{
		"variables": vars,
		"records":   rows,
	})
}

// ParamsHash identifies a concrete parameter configuration.
func ParamsHash(p Params) (string, error) {
	data, err := MarshalCanonical(p.Object())
	if err != nil {
		return "", fmt.Errorf("ParamsHash: %w", err)
	}
	return hashWithDomain(DomainParams, data), nil
}

// StateHash identifies a state snapshot, including its key order.
func StateHash(s State) (string, error) {
	data, err := MarshalCanonical(s)
	if err != nil {
		return "", fmt.Errorf("StateHash: %w", err)
	}
	return hashWithDomain(DomainState, data), nil
}

// MustTableDigest is like TableDigest but panics on error.
// Use only in tests.
func MustTableDigest(t Table) string {
	d, err := TableDigest(t)
	if err != nil {
		panic(err)
	}
	return d
}
