package hardware

import (
	"reflect"
	"testing"
	"time"
)

func TestDefaultConfigChannels(t *testing.T) {
	cfg := DefaultConfig()

	for i := 0; i < 10; i++ {
		name := "key" + string(rune('0'+i))
		if cfg.Outputs[name] != i {
			t.Fatalf("%s should map to line %d, got %d", name, i, cfg.Outputs[name])
		}
	}
	for name, want := range map[string]int{"lock": 10, "unlock": 11, "hold": 12, "connect": 13, "usb3": 14} {
		if cfg.Outputs[name] != want {
			t.Fatalf("%s should map to line %d, got %d", name, want, cfg.Outputs[name])
		}
	}
	if _, ok := cfg.Inputs["prod_inserted"]; !ok {
		t.Fatal("prod_inserted input missing")
	}
}

func TestSimJournal(t *testing.T) {
	s := NewSim()
	if err := s.On("usb3", "connect"); err != nil {
		t.Fatal(err)
	}
	if err := s.Press(100*time.Millisecond, "key1"); err != nil {
		t.Fatal(err)
	}
	if err := s.Off("usb3"); err != nil {
		t.Fatal(err)
	}

	want := []string{"on usb3+connect", "press key1 100ms", "off usb3"}
	if got := s.Journal(); !reflect.DeepEqual(got, want) {
		t.Fatalf("journal mismatch:\n got %v\nwant %v", got, want)
	}
	if !s.Active("connect") || s.Active("usb3") {
		t.Fatal("channel state should track on/off")
	}
}

func TestSimSequence(t *testing.T) {
	s := NewSim()
	seq := []Chord{{"key1"}, {"key2", "key3"}, {"unlock"}}
	if err := s.Sequence(seq, 50*time.Millisecond, 0); err != nil {
		t.Fatal(err)
	}

	want := []string{"press key1 50ms", "press key2+key3 50ms", "press unlock 50ms"}
	if got := s.Journal(); !reflect.DeepEqual(got, want) {
		t.Fatalf("journal mismatch:\n got %v\nwant %v", got, want)
	}
}

func TestSequenceRejectsEmptyChord(t *testing.T) {
	s := NewSim()
	if err := s.Sequence([]Chord{{}}, 10*time.Millisecond, 0); err == nil {
		t.Fatal("empty chord should be rejected")
	}
	if err := s.Sequence([]Chord{{"key1"}}, -time.Millisecond, 0); err == nil {
		t.Fatal("negative press duration should be rejected")
	}
}

type fakeRecorder struct {
	presses []string
	holds   []string
}

func (f *fakeRecorder) LogKeyPress(name string, hold time.Duration) {
	f.presses = append(f.presses, name)
}
func (f *fakeRecorder) StartKeyHold(name string) { f.holds = append(f.holds, "+"+name) }
func (f *fakeRecorder) StopKeyHold(name string)  { f.holds = append(f.holds, "-"+name) }

func TestRecordedMirrorsActivity(t *testing.T) {
	rec := &fakeRecorder{}
	a := NewRecorded(NewSim(), rec)

	if err := a.On("usb3"); err != nil {
		t.Fatal(err)
	}
	if err := a.Press(50*time.Millisecond, "key1", "key2"); err != nil {
		t.Fatal(err)
	}
	if err := a.Off("usb3"); err != nil {
		t.Fatal(err)
	}

	if !reflect.DeepEqual(rec.presses, []string{"key1", "key2"}) {
		t.Fatalf("unexpected presses: %v", rec.presses)
	}
	if !reflect.DeepEqual(rec.holds, []string{"+usb3", "-usb3"}) {
		t.Fatalf("unexpected holds: %v", rec.holds)
	}
}
