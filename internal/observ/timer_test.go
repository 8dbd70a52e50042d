package observ

import (
	"strings"
	"sync"
	"testing"
	"time"
)

func TestAddFoldsByName(t *testing.T) {
	tm := NewTimer()
	var wg sync.WaitGroup
	for range 4 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tm.Add("saturate", 2*time.Millisecond)
		}()
	}
	wg.Wait()
	tm.Add("pni", time.Millisecond)

	r := tm.Report()
	if len(r.Phases) != 2 {
		t.Fatalf("phases %+v", r.Phases)
	}
	sat := r.Phases[0]
	if sat.Name != "saturate" || sat.Count != 4 || sat.DurationMS != 8 {
		t.Fatalf("saturate = %+v", sat)
	}
	if r.TotalMS != 9 {
		t.Fatalf("total %v, want 9", r.TotalMS)
	}
	if !strings.Contains(tm.Summary(), "x4") {
		t.Fatalf("summary lacks sample count:\n%s", tm.Summary())
	}
}

func TestBeginEndOwnsTotal(t *testing.T) {
	tm := NewTimer()
	idx := tm.Begin("solve")
	tm.Add("saturate", time.Hour)
	tm.End(idx, "2 functions")
	r := tm.Report()
	if r.TotalMS >= float64(time.Hour/time.Millisecond) {
		t.Fatalf("folded phase counted in total: %v", r.TotalMS)
	}
	if r.Phases[0].Note != "2 functions" {
		t.Fatalf("note lost: %+v", r.Phases[0])
	}
}
