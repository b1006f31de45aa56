package resilience

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"
)

func TestFanOut_OneOutcomePerKey(t *testing.T) {
	p := NewPool(PoolConfig{Size: 2})
	defer p.Close()

	keys := []string{"C1", "C2", "C3", "C4", "C5"}
	errLookup := errors.New("lookup failed")

	outcomes := FanOut(context.Background(), p, keys, func(_ context.Context, k string) (int, bool, error) {
		switch k {
		case "C3":
			return 0, false, errLookup
		case "C5":
			return 0, false, nil
		}
		return len(k), true, nil
	})

	if len(outcomes) != 5 {
		t.Fatalf("len(outcomes) = %d, want 5", len(outcomes))
	}
	if o := outcomes["C3"]; o.OK || !errors.Is(o.Err, errLookup) {
		t.Errorf("C3 outcome = %+v, want absent with errLookup", o)
	}
	if o := outcomes["C5"]; o.OK || o.Err != nil {
		t.Errorf("C5 outcome = %+v, want absent without error", o)
	}
	if v, ok := outcomes["C1"].Present(); !ok || v != 2 {
		t.Errorf("C1 = (%d, %v), want (2, true)", v, ok)
	}

	present := Present(outcomes)
	if len(present) != 3 {
		t.Errorf("len(Present) = %d, want 3", len(present))
	}
}

func TestFanOut_IsolatesFailureAmongFive(t *testing.T) {
	p := NewPool(PoolConfig{Size: 4})
	defer p.Close()

	keys := []string{"A", "B", "C", "D", "E"}
	outcomes := FanOut(context.Background(), p, keys, func(_ context.Context, k string) (string, bool, error) {
		if k == "C" {
			return "", false, fmt.Errorf("malformed component %q", k)
		}
		return k + "-rate", true, nil
	})

	if got := len(Present(outcomes)); got != 4 {
		t.Fatalf("present = %d, want 4", got)
	}
}

func TestFanOut_RecoversPanics(t *testing.T) {
	p := NewPool(PoolConfig{Size: 2})
	defer p.Close()

	outcomes := FanOut(context.Background(), p, []int{1, 2, 3}, func(_ context.Context, k int) (int, bool, error) {
		if k == 2 {
			panic("bad row")
		}
		return k * 10, true, nil
	})

	if o := outcomes[2]; o.OK || !errors.Is(o.Err, ErrTaskPanic) {
		t.Errorf("outcome[2] = %+v, want ErrTaskPanic", o)
	}
	if len(Present(outcomes)) != 2 {
		t.Errorf("expected the other two keys to succeed")
	}
}

func TestFanOut_DeduplicatesKeys(t *testing.T) {
	p := NewPool(PoolConfig{Size: 2})
	defer p.Close()

	var calls atomic.Int64
	outcomes := FanOut(context.Background(), p, []string{"X", "X", "Y"}, func(_ context.Context, k string) (string, bool, error) {
		calls.Add(1)
		return k, true, nil
	})

	if calls.Load() != 2 {
		t.Errorf("calls = %d, want 2", calls.Load())
	}
	if len(outcomes) != 2 {
		t.Errorf("len(outcomes) = %d, want 2", len(outcomes))
	}
}

func TestFanOut_WaitsForStragglers(t *testing.T) {
	p := NewPool(PoolConfig{Size: 3})
	defer p.Close()

	outcomes := FanOut(context.Background(), p, []int{0, 1, 2}, func(_ context.Context, k int) (int, bool, error) {
		if k == 0 {
			return 0, false, errors.New("fast failure")
		}
		time.Sleep(time.Duration(k) * 10 * time.Millisecond)
		return k, true, nil
	})

	for _, k := range []int{1, 2} {
		if !outcomes[k].OK {
			t.Errorf("key %d not finished when FanOut returned", k)
		}
	}
}

func TestFanOut_ClosedPool(t *testing.T) {
	p := NewPool(PoolConfig{Size: 1})
	p.Close()

	outcomes := FanOut(context.Background(), p, []string{"A", "B"}, func(context.Context, string) (int, bool, error) {
		t.Error("task must not run on a closed pool")
		return 0, true, nil
	})

	for k, o := range outcomes {
		if o.OK || !errors.Is(o.Err, ErrPoolClosed) {
			t.Errorf("outcome[%s] = %+v, want ErrPoolClosed", k, o)
		}
	}
	if len(outcomes) != 2 {
		t.Errorf("len(outcomes) = %d, want 2", len(outcomes))
	}
}

func TestFanOut_Empty(t *testing.T) {
	p := NewPool(PoolConfig{Size: 1})
	defer p.Close()

	if got := FanOut[string, int](context.Background(), p, nil, nil); len(got) != 0 {
		t.Errorf("FanOut(nil) = %v, want empty", got)
	}
}
