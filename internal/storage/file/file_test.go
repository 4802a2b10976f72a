// internal/storage/file/file_test.go
package file

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/tamzrod/ibutton-cloner/internal/storage"
)

func TestOpen_CreatesZeroedImage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "eeprom.bin")

	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() err=%v", err)
	}
	defer s.Close()

	st, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat err=%v", err)
	}
	if st.Size() != storage.Size {
		t.Fatalf("image size got=%d want=%d", st.Size(), storage.Size)
	}

	b, err := s.Read(storage.Size - 1)
	if err != nil || b != 0 {
		t.Fatalf("expected zero byte, got=%d err=%v", b, err)
	}
}

func TestWrite_SurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "eeprom.bin")

	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() err=%v", err)
	}
	if err := s.WriteBytes(3<<5, []byte{0x01, 0x02, 0x03}); err != nil {
		t.Fatalf("WriteBytes err=%v", err)
	}
	if err := s.Write(3<<5+8, 'A'); err != nil {
		t.Fatalf("Write err=%v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close err=%v", err)
	}

	s, err = Open(path)
	if err != nil {
		t.Fatalf("reopen err=%v", err)
	}
	defer s.Close()

	got, err := storage.ReadRun(s, 3<<5, 3)
	if err != nil {
		t.Fatalf("ReadRun err=%v", err)
	}
	if got[0] != 0x01 || got[1] != 0x02 || got[2] != 0x03 {
		t.Fatalf("unexpected bytes after reopen: % X", got)
	}
	if b, _ := s.Read(3<<5 + 8); b != 'A' {
		t.Fatalf("name byte got=%q want='A'", b)
	}
}

func TestWrite_OutOfRange(t *testing.T) {
	s, err := Open(filepath.Join(t.TempDir(), "eeprom.bin"))
	if err != nil {
		t.Fatalf("Open() err=%v", err)
	}
	defer s.Close()

	if err := s.WriteBytes(storage.Size-1, []byte{1, 2}); err == nil {
		t.Fatalf("expected range error")
	}
}
