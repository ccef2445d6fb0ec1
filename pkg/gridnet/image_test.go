package gridnet

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/teslashibe/go-balltrack/pkg/frame"
)

func TestWriteReadFrame(t *testing.T) {
	src := frame.New(64, 36, frame.RGBA)
	src.Fill(20, 30, 40)
	src.SetRGB(10, 5, 190, 240, 40)

	path := filepath.Join(t.TempDir(), "000001.png")
	if err := WriteFrame(path, src); err != nil {
		t.Fatalf("WriteFrame: %v", err)
	}

	got, err := ReadFrame(path, 66*time.Millisecond)
	if err != nil {
		t.Fatalf("ReadFrame: %v", err)
	}
	if got.Width != 64 || got.Height != 36 || got.Format != frame.BGRA {
		t.Fatalf("frame: got %dx%d %s", got.Width, got.Height, got.Format)
	}
	if got.Timestamp != 66*time.Millisecond {
		t.Errorf("timestamp: got %v", got.Timestamp)
	}
	if r, g, b := got.RGB(10, 5); r != 190 || g != 240 || b != 40 {
		t.Errorf("ball pixel: got (%d,%d,%d)", r, g, b)
	}
	if r, g, b := got.RGB(0, 0); r != 20 || g != 30 || b != 40 {
		t.Errorf("background pixel: got (%d,%d,%d)", r, g, b)
	}
}

func TestReadFrame_Missing(t *testing.T) {
	_, err := ReadFrame(filepath.Join(t.TempDir(), "nope.png"), 0)
	if !errors.Is(err, frame.ErrUnreadable) {
		t.Errorf("got %v, want ErrUnreadable", err)
	}
}

func TestListImages(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"0002.png", "0001.jpg", "notes.txt", "0003.PNG"} {
		if err := os.WriteFile(filepath.Join(dir, name), nil, 0o644); err != nil {
			t.Fatal(err)
		}
	}
	if err := os.Mkdir(filepath.Join(dir, "sub.png"), 0o755); err != nil {
		t.Fatal(err)
	}

	got, err := ListImages(dir)
	if err != nil {
		t.Fatalf("ListImages: %v", err)
	}
	want := []string{"0001.jpg", "0002.png", "0003.PNG"}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if filepath.Base(got[i]) != want[i] {
			t.Errorf("[%d]: got %s, want %s", i, filepath.Base(got[i]), want[i])
		}
	}
}
