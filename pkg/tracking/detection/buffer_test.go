package detection

import (
	"sync"
	"testing"
	"time"

	"github.com/teslashibe/go-balltrack/pkg/frame"
)

func stamped(ms int) frame.Frame {
	f := frame.New(2, 2, frame.BGRA)
	f.Timestamp = time.Duration(ms) * time.Millisecond
	return f
}

func timestamps(frames []frame.Frame) []int {
	out := make([]int, len(frames))
	for i, f := range frames {
		out[i] = int(f.Timestamp / time.Millisecond)
	}
	return out
}

func TestFrameBuffer_KeepsLastFiveInOrder(t *testing.T) {
	b := NewFrameBuffer(5)

	for i := 1; i <= 6; i++ {
		if b.Full() && i <= 5 {
			t.Fatalf("buffer full after %d pushes", i-1)
		}
		b.Push(stamped(i))
	}

	if !b.Full() {
		t.Fatal("buffer should be full")
	}
	got := timestamps(b.Snapshot())
	want := []int{2, 3, 4, 5, 6}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v, want %v", got, want)
		}
	}
}

func TestFrameBuffer_WrapsRepeatedly(t *testing.T) {
	b := NewFrameBuffer(5)
	for i := 1; i <= 23; i++ {
		b.Push(stamped(i))
	}
	got := timestamps(b.Snapshot())
	want := []int{19, 20, 21, 22, 23}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v, want %v", got, want)
		}
	}
}

func TestFrameBuffer_Clear(t *testing.T) {
	b := NewFrameBuffer(5)
	for i := 0; i < 5; i++ {
		b.Push(stamped(i))
	}
	b.Clear()

	if b.Len() != 0 {
		t.Errorf("Len after Clear: got %d, want 0", b.Len())
	}
	b.Push(stamped(42))
	if got := timestamps(b.Snapshot()); len(got) != 1 || got[0] != 42 {
		t.Errorf("Snapshot after Clear+Push: got %v", got)
	}
}

func TestFrameBuffer_ConcurrentPush(t *testing.T) {
	b := NewFrameBuffer(5)

	var wg sync.WaitGroup
	for p := 0; p < 4; p++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				b.Push(stamped(i))
				_ = b.Snapshot()
			}
		}()
	}
	wg.Wait()

	if b.Len() != 5 {
		t.Errorf("Len: got %d, want 5", b.Len())
	}
}
