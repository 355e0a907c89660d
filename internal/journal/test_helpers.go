package journal

import (
	"testing"
)

// SetupTestJournal creates an in-memory journal for testing
func SetupTestJournal(t *testing.T) *Journal {
	t.Helper()

	j, err := Open(":memory:")
	if err != nil {
		t.Fatalf("Failed to create test journal: %v", err)
	}

	return j
}

// CleanupTestJournal closes the test journal
func CleanupTestJournal(t *testing.T, j *Journal) {
	t.Helper()

	if err := j.Close(); err != nil {
		t.Errorf("Failed to close test journal: %v", err)
	}
}
