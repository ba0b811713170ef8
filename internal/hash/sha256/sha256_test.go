package sha256

import "testing"

func TestHash(t *testing.T) {
	t.Parallel()

	h := New()
	got, err := h.Hash([]byte("gt3-cup\n1|A. Senna|12|Pro|145|\n"))
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if len(got) != 64 {
		t.Fatalf("expected 64 hex chars, got %d", len(got))
	}

	same, _ := h.Hash([]byte("gt3-cup\n1|A. Senna|12|Pro|145|\n"))
	if got != same {
		t.Fatal("expected deterministic digest")
	}

	other, _ := h.Hash([]byte("gt3-cup\n1|A. Senna|12|Pro|146|\n"))
	if got == other {
		t.Fatal("expected different digests for different input")
	}
}
