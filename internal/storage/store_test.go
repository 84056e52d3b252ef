package storage

import (
	"bufio"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/san-kum/mbsim/internal/dynamo"
)

func fakeResult() *dynamo.Result {
	// Two bodies, reference first. Three recorded steps.
	states := make([]dynamo.State, 3)
	times := make([]float64, 3)
	for i := range states {
		x := make(dynamo.State, 2*stateBlock)
		x[stateBlock+0] = float64(i)
		x[stateBlock+1] = -1
		times[i] = float64(i) * 0.001
		states[i] = x
	}
	return &dynamo.Result{
		States:      states,
		Times:       times,
		Metrics:     map[string]float64{"energy_drift": 1e-6},
		EnergyDrift: 1e-6,
		StepsTaken:  2,
	}
}

func TestSaveAndLoad(t *testing.T) {
	store := New(t.TempDir())
	if err := store.Init(); err != nil {
		t.Fatalf("init: %v", err)
	}

	runID, err := store.Save(RunMetadata{
		Model: "pendulum", Dt: 0.001, Duration: 0.002,
		Integrator: "rk4", Bodies: 2, Joints: 1,
	}, fakeResult())
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if !strings.HasPrefix(runID, "pendulum_") {
		t.Errorf("unexpected run ID %q", runID)
	}

	meta, err := store.Load(runID)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if meta.Model != "pendulum" || meta.Bodies != 2 {
		t.Errorf("metadata mismatch: %+v", meta)
	}
	if meta.Metrics["energy_drift"] != 1e-6 {
		t.Errorf("metrics not persisted: %+v", meta.Metrics)
	}

	states, times, err := store.LoadStates(runID)
	if err != nil {
		t.Fatalf("load states: %v", err)
	}
	if len(states) != 3 || len(times) != 3 {
		t.Fatalf("expected 3 records, got %d states, %d times", len(states), len(times))
	}
	if states[2][stateBlock] != 2 {
		t.Errorf("state value mismatch: got %f", states[2][stateBlock])
	}
}

func TestTrajectoryFile(t *testing.T) {
	dir := t.TempDir()
	store := New(dir)

	runID, err := store.Save(RunMetadata{Model: "chain"}, fakeResult())
	if err != nil {
		t.Fatalf("save: %v", err)
	}

	file, err := os.Open(filepath.Join(dir, runID, "trajectory.tsv"))
	if err != nil {
		t.Fatalf("open trajectory: %v", err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	if !scanner.Scan() {
		t.Fatal("empty trajectory file")
	}
	header := strings.Split(scanner.Text(), "\t")
	// time plus one position triple for the single mobilized body
	if len(header) != 4 {
		t.Fatalf("expected 4 header columns, got %d: %v", len(header), header)
	}

	rows := 0
	for scanner.Scan() {
		fields := strings.Split(scanner.Text(), "\t")
		if len(fields) != 4 {
			t.Errorf("row %d: expected 4 columns, got %d", rows, len(fields))
		}
		rows++
	}
	if rows != 3 {
		t.Errorf("expected 3 data rows, got %d", rows)
	}
}

func TestListEmpty(t *testing.T) {
	store := New(filepath.Join(t.TempDir(), "missing"))
	runs, err := store.List()
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(runs) != 0 {
		t.Errorf("expected no runs, got %d", len(runs))
	}
}

func TestList(t *testing.T) {
	store := New(t.TempDir())
	if _, err := store.Save(RunMetadata{Model: "chain"}, fakeResult()); err != nil {
		t.Fatalf("save: %v", err)
	}
	runs, err := store.List()
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(runs) != 1 || runs[0].Model != "chain" {
		t.Errorf("unexpected runs: %+v", runs)
	}
}
