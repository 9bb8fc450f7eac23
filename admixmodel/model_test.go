package admixmodel

import (
	"strings"
	"testing"
)

func TestScheduleFillsSkippedGenerations(t *testing.T) {
	m, err := Parse(strings.NewReader("10 Admixed CEU YRI\n1 0 0.2 0.8\n4 0.9 0.1 0\n"))
	if err != nil {
		t.Fatal(err)
	}

	sched := m.Schedule()
	if len(sched) != 4 {
		t.Fatalf("Expected 4 scheduled generations, got %d", len(sched))
	}

	for i, gen := range sched {
		if gen.Number != i+1 {
			t.Errorf("Generation %d is numbered %d", i+1, gen.Number)
		}
	}

	if sched[0].PropAdmixed != 0 || sched[0].PopProps[0] != 0.2 || sched[0].PopProps[1] != 0.8 {
		t.Error("Mismatch in generation 1")
	}
	for _, gen := range sched[1:3] {
		if gen.PropAdmixed != 1 {
			t.Errorf("Skipped generation %d should mate purely within the admixed pool", gen.Number)
		}
		for _, p := range gen.PopProps {
			if p != 0 {
				t.Errorf("Skipped generation %d should not draw founders", gen.Number)
			}
		}
	}
	if sched[3].PropAdmixed != 0.9 || sched[3].PopProps[0] != 0.1 || sched[3].PopProps[1] != 0 {
		t.Error("Mismatch in generation 4")
	}
}

func TestWeightsOrder(t *testing.T) {
	gen := Generation{Number: 2, PropAdmixed: 0.5, PopProps: []float64{0.3, 0.2}}

	w := gen.Weights()
	if len(w) != 3 || w[0] != 0.5 || w[1] != 0.3 || w[2] != 0.2 {
		t.Error("Mismatch")
	}
}
