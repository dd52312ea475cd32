package testutil

// ConstantIDGenerator returns the same execution ID every time.
//
// This enables deterministic stored output: every execution of a scenario
// gets the same ID, so stores and golden files compare byte for byte.
//
// Unlike engine.FixedGenerator, which returns IDs in sequence and panics
// when they run out, this generator never runs out.
//
// Thread-safety: ConstantIDGenerator is stateless and safe for concurrent use.
type ConstantIDGenerator struct {
	id string
}

// NewConstantIDGenerator creates a constant execution ID generator.
// If id is empty, Generate() returns "test-execution".
func NewConstantIDGenerator(id string) *ConstantIDGenerator {
	if id == "" {
		id = "test-execution"
	}
	return &ConstantIDGenerator{id: id}
}

// Generate returns the constant ID.
//
// Implements engine.IDGenerator.
func (g *ConstantIDGenerator) Generate() string {
	return g.id
}
