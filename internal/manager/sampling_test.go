package manager

import "testing"

func TestSampler_TopKOne(t *testing.T) {
	s := newSampler(1)
	logits := []float32{0.1, 3, 0.2, 2.9}
	for i := 0; i < 20; i++ {
		if got := s.sample(logits, GenerateParams{TopK: 1, Temperature: 1, TopP: 1}); got != 1 {
			t.Fatalf("top_k=1 picked %d", got)
		}
	}
}

func TestSampler_TopPNarrow(t *testing.T) {
	s := newSampler(7)
	logits := []float32{10, 0, 0, 0}
	for i := 0; i < 20; i++ {
		if got := s.sample(logits, GenerateParams{Temperature: 1, TopP: 0.5}); got != 0 {
			t.Fatalf("top_p=0.5 picked %d", got)
		}
	}
}

func TestSampler_SeedDeterministic(t *testing.T) {
	logits := []float32{1, 1, 1, 1, 1, 1, 1, 1}
	p := GenerateParams{Temperature: 1, TopP: 1}
	a, b := newSampler(42), newSampler(42)
	for i := 0; i < 10; i++ {
		if x, y := a.sample(logits, p), b.sample(logits, p); x != y {
			t.Fatalf("same seed diverged at %d: %d vs %d", i, x, y)
		}
	}
}

func TestSampler_InRangeAndEmpty(t *testing.T) {
	s := newSampler(3)
	logits := []float32{0.5, -1, 2}
	for i := 0; i < 50; i++ {
		if got := s.sample(logits, GenerateParams{Temperature: 0.7, TopK: 50, TopP: 0.9}); got < 0 || got >= len(logits) {
			t.Fatalf("index out of range: %d", got)
		}
	}
	if got := s.sample(nil, GenerateParams{}); got != 0 {
		t.Fatalf("empty logits: %d", got)
	}
}
