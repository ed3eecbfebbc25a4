package events

import "testing"

func TestRingBufferWrapsAround(t *testing.T) {
	rb := NewRingBuffer(3)
	for i := 0; i < 5; i++ {
		rb.Add(Event{Fields: map[string]interface{}{"i": i}})
	}

	if rb.Len() != 3 {
		t.Fatalf("expected 3 buffered events, got %d", rb.Len())
	}
	got := rb.Snapshot()
	for idx, want := range []int{2, 3, 4} {
		if got[idx].Fields["i"] != want {
			t.Errorf("slot %d: expected i=%d, got %v", idx, want, got[idx].Fields["i"])
		}
	}

	last := rb.Last(2)
	if len(last) != 2 || last[0].Fields["i"] != 3 || last[1].Fields["i"] != 4 {
		t.Errorf("unexpected Last(2): %v", last)
	}
}

func TestRingBufferClear(t *testing.T) {
	rb := NewRingBuffer(4)
	rb.Add(Event{Name: "move.executed"})
	rb.Clear()

	if rb.Len() != 0 || len(rb.Snapshot()) != 0 {
		t.Error("expected empty buffer after Clear")
	}
}
