package resilience

import (
	"errors"
	"testing"
	"time"
)

func TestCircuitBreaker_ClosedAllowsRequests(t *testing.T) {
	cb := NewCircuitBreaker("tts", 3, time.Second)

	err := cb.Call(func() error { return nil })
	if err != nil {
		t.Errorf("Expected no error, got %v", err)
	}
	if cb.GetState() != StateClosed {
		t.Errorf("Expected StateClosed, got %v", cb.GetState())
	}
}

func TestCircuitBreaker_OpensAfterMaxFailures(t *testing.T) {
	cb := NewCircuitBreaker("tts", 3, time.Second)

	for i := 0; i < 3; i++ {
		cb.Call(func() error { return errors.New("service down") })
	}

	if cb.GetState() != StateOpen {
		t.Errorf("Expected StateOpen after 3 failures, got %v", cb.GetState())
	}

	// Subsequent calls are rejected without invoking the function
	invoked := false
	err := cb.Call(func() error {
		invoked = true
		return nil
	})
	if !errors.Is(err, ErrCircuitOpen) {
		t.Errorf("Expected ErrCircuitOpen, got %v", err)
	}
	if invoked {
		t.Error("Expected function not to be invoked while circuit is open")
	}
}

func TestCircuitBreaker_SuccessResetsFailureCount(t *testing.T) {
	cb := NewCircuitBreaker("tts", 3, time.Second)

	cb.Call(func() error { return errors.New("failure") })
	cb.Call(func() error { return errors.New("failure") })
	cb.Call(func() error { return nil })
	cb.Call(func() error { return errors.New("failure") })
	cb.Call(func() error { return errors.New("failure") })

	if cb.GetState() != StateClosed {
		t.Errorf("Expected StateClosed after interleaved success, got %v", cb.GetState())
	}
}

func TestCircuitBreaker_HalfOpenAfterResetTimeout(t *testing.T) {
	cb := NewCircuitBreaker("tts", 1, 20*time.Millisecond)

	cb.Call(func() error { return errors.New("failure") })
	if cb.GetState() != StateOpen {
		t.Fatalf("Expected StateOpen, got %v", cb.GetState())
	}

	time.Sleep(30 * time.Millisecond)

	// First probe after the reset timeout is allowed through
	err := cb.Call(func() error { return nil })
	if err != nil {
		t.Errorf("Expected probe request to pass, got %v", err)
	}
}

func TestCircuitBreaker_HalfOpenFailureReopens(t *testing.T) {
	cb := NewCircuitBreaker("tts", 1, 10*time.Millisecond)

	cb.Call(func() error { return errors.New("failure") })
	time.Sleep(20 * time.Millisecond)

	cb.Call(func() error { return errors.New("still failing") })
	if cb.GetState() != StateOpen {
		t.Errorf("Expected StateOpen after half-open failure, got %v", cb.GetState())
	}
}

func TestCircuitBreaker_HalfOpenClosesAfterSuccesses(t *testing.T) {
	cb := NewCircuitBreaker("tts", 1, 10*time.Millisecond)

	cb.Call(func() error { return errors.New("failure") })
	time.Sleep(20 * time.Millisecond)

	// Three successful probes close the circuit
	for i := 0; i < 3; i++ {
		if err := cb.Call(func() error { return nil }); err != nil {
			t.Fatalf("Probe %d rejected: %v", i, err)
		}
	}

	if cb.GetState() != StateClosed {
		t.Errorf("Expected StateClosed after successful probes, got %v", cb.GetState())
	}
}

func TestCircuitBreaker_GetStats(t *testing.T) {
	cb := NewCircuitBreaker("tts", 5, time.Second)

	cb.Call(func() error { return nil })
	cb.Call(func() error { return errors.New("failure") })

	state, requests, failures, rate := cb.GetStats()
	if state != StateClosed {
		t.Errorf("Expected StateClosed, got %v", state)
	}
	if requests != 2 {
		t.Errorf("Expected 2 requests, got %d", requests)
	}
	if failures != 1 {
		t.Errorf("Expected 1 failure, got %d", failures)
	}
	if rate != 50.0 {
		t.Errorf("Expected 50%% failure rate, got %f", rate)
	}
}

func TestCircuitBreaker_Reset(t *testing.T) {
	cb := NewCircuitBreaker("tts", 1, time.Hour)

	cb.Call(func() error { return errors.New("failure") })
	if cb.GetState() != StateOpen {
		t.Fatalf("Expected StateOpen, got %v", cb.GetState())
	}

	cb.Reset()
	if cb.GetState() != StateClosed {
		t.Errorf("Expected StateClosed after reset, got %v", cb.GetState())
	}
}
