package tracking

import "testing"

func TestStatusTrackerObserve(t *testing.T) {
	tests := []struct {
		name string
		from ReceptionStatus
		in   Connectivity
		want ReceptionStatus
	}{
		{"idle stays idle when disconnected", NotReceiving, Disconnected, NotReceiving},
		{"idle starts receiving", NotReceiving, Streaming, Receiving},
		{"idle ignores failed auto-start", NotReceiving, AutoStartFailed, NotReceiving},
		{"receiving keeps streaming", Receiving, Streaming, Receiving},
		{"receiving drops", Receiving, Disconnected, NotReceiving},
		{"receiving ignores stale auto-start failure", Receiving, AutoStartFailed, Receiving},
		{"attempt succeeds", AttemptingAutoStart, Streaming, Receiving},
		{"attempt fails", AttemptingAutoStart, AutoStartFailed, NotReceiving},
		{"attempt survives disconnect", AttemptingAutoStart, Disconnected, AttemptingAutoStart},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr := &StatusTracker{status: tt.from}
			from, to, changed := tr.Observe(tt.in)
			if from != tt.from || to != tt.want {
				t.Errorf("Observe(%v) from %v = (%v, %v), want (%v, %v)", tt.in, tt.from, from, to, tt.from, tt.want)
			}
			if changed != (tt.from != tt.want) {
				t.Errorf("changed = %v", changed)
			}
			if tr.Status() != tt.want {
				t.Errorf("Status() = %v, want %v", tr.Status(), tt.want)
			}
		})
	}
}

func TestStatusTrackerRequestAutoStart(t *testing.T) {
	tests := []struct {
		from ReceptionStatus
		want ReceptionStatus
	}{
		{NotReceiving, AttemptingAutoStart},
		{AttemptingAutoStart, AttemptingAutoStart},
		{Receiving, Receiving},
	}
	for _, tt := range tests {
		t.Run(tt.from.String(), func(t *testing.T) {
			tr := &StatusTracker{status: tt.from}
			_, to, changed := tr.RequestAutoStart()
			if to != tt.want {
				t.Errorf("RequestAutoStart from %v -> %v, want %v", tt.from, to, tt.want)
			}
			if changed != (tt.from != tt.want) {
				t.Errorf("changed = %v", changed)
			}
		})
	}
}

func TestStatusTrackerInitial(t *testing.T) {
	if got := NewStatusTracker().Status(); got != NotReceiving {
		t.Errorf("initial status = %v, want NOT_RECEIVING", got)
	}
}

func TestReceptionStatusText(t *testing.T) {
	for _, s := range []ReceptionStatus{NotReceiving, Receiving, AttemptingAutoStart} {
		b, err := s.MarshalText()
		if err != nil {
			t.Fatalf("MarshalText(%v): %v", s, err)
		}
		var back ReceptionStatus
		if err := back.UnmarshalText(b); err != nil {
			t.Fatalf("UnmarshalText(%q): %v", b, err)
		}
		if back != s {
			t.Errorf("round trip %v -> %v", s, back)
		}
	}

	var s ReceptionStatus
	if err := s.UnmarshalText([]byte("BOGUS")); err == nil {
		t.Error("UnmarshalText(BOGUS) should fail")
	}
}
