package procmon

import "testing"

func TestClassifyHealthyBelowThresholds(t *testing.T) {
	m := &Monitor{thresholds: Thresholds{RSSBytes: 100 * 1024 * 1024, CPUPercent: 80}}
	if got := m.classify(10*1024*1024, 5); got != Healthy {
		t.Errorf("classify() = %v, want Healthy", got)
	}
}

func TestClassifyDegradedOverRSS(t *testing.T) {
	m := &Monitor{thresholds: Thresholds{RSSBytes: 100 * 1024 * 1024, CPUPercent: 80}}
	if got := m.classify(200*1024*1024, 5); got != Degraded {
		t.Errorf("classify() = %v, want Degraded", got)
	}
}

func TestClassifyDegradedOverCPU(t *testing.T) {
	m := &Monitor{thresholds: Thresholds{RSSBytes: 100 * 1024 * 1024, CPUPercent: 80}}
	if got := m.classify(1024, 95); got != Degraded {
		t.Errorf("classify() = %v, want Degraded", got)
	}
}

func TestDefaultThresholds(t *testing.T) {
	th := DefaultThresholds()
	if th.RSSBytes != 100*1024*1024 {
		t.Errorf("RSSBytes = %d", th.RSSBytes)
	}
	if th.CPUPercent != 80 {
		t.Errorf("CPUPercent = %v", th.CPUPercent)
	}
}

func TestStatusString(t *testing.T) {
	cases := map[Status]string{Healthy: "healthy", Degraded: "degraded", Failed: "failed"}
	for status, want := range cases {
		if got := status.String(); got != want {
			t.Errorf("Status(%d).String() = %q, want %q", status, got, want)
		}
	}
}
