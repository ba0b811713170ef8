package logging

import "testing"

func TestNewProduction(t *testing.T) {
	t.Parallel()

	logger, err := New(false)
	if err != nil {
		t.Fatalf("build production logger: %v", err)
	}
	if logger == nil {
		t.Fatal("expected a logger")
	}
	logger.Named("test").Debug("production logger built")
}

func TestNewDevelopment(t *testing.T) {
	t.Parallel()

	logger, err := New(true)
	if err != nil {
		t.Fatalf("build development logger: %v", err)
	}
	if logger == nil {
		t.Fatal("expected a logger")
	}
}
