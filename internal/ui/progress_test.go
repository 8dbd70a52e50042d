package ui

import (
	"strings"
	"testing"

	"retype/internal/driver"
)

func TestApplyEventTracksFunctions(t *testing.T) {
	m := NewProgressModel("solving", []string{"main"}, nil).(*progressModel)
	m.applyEvent(driver.Event{Function: "main", Stage: driver.StageSolve, Status: driver.StatusWorking})
	if got := m.items[0].status; got != "saturating" {
		t.Fatalf("status %q, want saturating", got)
	}
	m.applyEvent(driver.Event{Function: "main", Stage: driver.StageSimplify, Status: driver.StatusDone})
	if got := m.items[0].status; got != "saturating" {
		t.Fatalf("a stage finishing changed the status to %q", got)
	}
	m.applyEvent(driver.Event{Function: "helper", Stage: driver.StageSolve, Status: driver.StatusCached})
	if len(m.items) != 2 || m.items[1].status != "cached" {
		t.Fatalf("late function not added: %+v", m.items)
	}
	m.applyEvent(driver.Event{Function: "main", Stage: driver.StageSolve, Status: driver.StatusDone})
	if p := m.percent(); p != 1 {
		t.Fatalf("percent %v, want 1", p)
	}
	if view := m.View(); !strings.Contains(view, "helper") || !strings.Contains(view, "solving") {
		t.Fatalf("view misses lines:\n%s", view)
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("abcdefghij", 6); got != "abc..." {
		t.Fatalf("truncate = %q", got)
	}
	if got := truncate("関数名の長い関数", 9); got != "関数名..." {
		t.Fatalf("wide truncate = %q", got)
	}
	if got := truncate("abc", 6); got != "abc" {
		t.Fatalf("truncate = %q", got)
	}
}
