package cache

import "testing"

func TestDefaultService(t *testing.T) {
	ClearDefault()
	if svc := Default(); svc != nil {
		t.Fatalf("Default() = %v before SetDefault, want nil", svc)
	}

	svc := newMemoryService()
	SetDefault(svc)
	defer ClearDefault()

	if got := Default(); got != Service(svc) {
		t.Errorf("Default() did not return the installed service")
	}

	ClearDefault()
	if got := Default(); got != nil {
		t.Errorf("Default() = %v after ClearDefault, want nil", got)
	}
}
