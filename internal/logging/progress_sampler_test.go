package logging

import "testing"

func TestProgressSamplerBuckets(t *testing.T) {
	s := NewProgressSampler(25)
	var emitted []int
	for done := 0; done <= 8; done++ {
		if s.ShouldLog(done, 8) {
			emitted = append(emitted, done)
		}
	}
	want := []int{0, 2, 4, 6, 8}
	if len(emitted) != len(want) {
		t.Fatalf("emitted %v, want %v", emitted, want)
	}
	for i := range want {
		if emitted[i] != want[i] {
			t.Fatalf("emitted %v, want %v", emitted, want)
		}
	}
}

func TestProgressSamplerReset(t *testing.T) {
	s := NewProgressSampler(50)
	if !s.ShouldLog(0, 2) {
		t.Fatal("expected first sample to log")
	}
	if s.ShouldLog(0, 2) {
		t.Fatal("expected repeated sample to be suppressed")
	}
	s.Reset()
	if !s.ShouldLog(0, 2) {
		t.Fatal("expected sample after reset to log")
	}
}

func TestProgressSamplerNilAndEmpty(t *testing.T) {
	var s *ProgressSampler
	if !s.ShouldLog(1, 2) {
		t.Fatal("nil sampler should always log")
	}
	if NewProgressSampler(0).ShouldLog(0, 0) {
		t.Fatal("zero total should not log")
	}
}
