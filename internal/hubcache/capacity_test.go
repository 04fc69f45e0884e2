package hubcache

import "testing"

func TestCapacitySentOnlyOnChange(t *testing.T) {
	tr := NewCapacityTracker(10)

	cap1, send1 := tr.Tick(0, 0)
	if !send1 || cap1 != 10 {
		t.Fatalf("expected first tick to send capacity 10, got %d send=%v", cap1, send1)
	}

	cap2, send2 := tr.Tick(0, 0)
	if send2 {
		t.Fatalf("expected unchanged capacity %d to not resend", cap2)
	}

	cap3, send3 := tr.Tick(1, 0)
	if !send3 || cap3 != 9 {
		t.Fatalf("expected changed capacity to resend, got %d send=%v", cap3, send3)
	}
}

func TestCapacityResendsAfterReconnect(t *testing.T) {
	tr := NewCapacityTracker(5)
	tr.Tick(0, 0)

	tr.OnReconnect()

	_, send := tr.Tick(0, 0)
	if !send {
		t.Fatal("expected resend on first tick after reconnect")
	}
}
