package ps

import (
	"testing"
)

func TestStatus(t *testing.T) {
	m, err := MemoryStatus()
	if err != nil {
		t.Fatal(err)
	}
	if m.Total == 0 {
		t.Fatal("total memory should be non-zero")
	}

	c, err := CPUStatus()
	if err != nil {
		t.Fatal(err)
	}
	if c.Percent < 0 || c.Percent > 100 {
		t.Fatalf("cpu percent out of range: %v", c.Percent)
	}

	d, err := DiskStatus(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	if d.Total == 0 {
		t.Fatal("disk total should be non-zero")
	}
}
