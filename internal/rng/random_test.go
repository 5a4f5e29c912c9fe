package rng

import "testing"

func TestScriptedCycles(t *testing.T) {
	s := NewScripted(0.1, 0.9)
	got := []float64{s.Float64(), s.Float64(), s.Float64()}
	want := []float64{0.1, 0.9, 0.1}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("draw %d: got %v want %v", i, got[i], want[i])
		}
	}
}

func TestScriptedIntnInRange(t *testing.T) {
	s := NewScripted(0, 0.5, 1.0)
	for i := 0; i < 6; i++ {
		n := s.Intn(4)
		if n < 0 || n >= 4 {
			t.Fatalf("Intn out of range: %d", n)
		}
	}
}

func TestSymmetric(t *testing.T) {
	if v := Symmetric(NewScripted(0.5)); v != 0 {
		t.Errorf("midpoint should map to 0, got %v", v)
	}
	if v := Symmetric(NewScripted(0)); v != -1 {
		t.Errorf("zero should map to -1, got %v", v)
	}
}

func TestSeededDeterministic(t *testing.T) {
	a, b := NewSeeded(42), NewSeeded(42)
	for i := 0; i < 10; i++ {
		if a.Float64() != b.Float64() {
			t.Fatal("same seed produced different sequences")
		}
	}
}
