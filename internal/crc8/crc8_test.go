// internal/crc8/crc8_test.go
package crc8

import "testing"

func TestChecksum_KnownROM(t *testing.T) {
	// ROM code from the Maxim 1-Wire CRC application note.
	rom := []byte{0x02, 0x1C, 0xB8, 0x01, 0x00, 0x00, 0x00}

	if got := Checksum(rom); got != 0xA2 {
		t.Fatalf("crc mismatch: got=0x%02X want=0xA2", got)
	}
}

func TestChecksum_EmptyIsSeed(t *testing.T) {
	if got := Checksum(nil); got != Seed {
		t.Fatalf("empty crc: got=0x%02X want=0x%02X", got, Seed)
	}
}

func TestChecksum_TableMatchesBitwise(t *testing.T) {
	data := []byte{0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07, 0xFF, 0x80, 0x00}

	var want byte
	for _, b := range data {
		want = update(want, b)
	}

	if got := Checksum(data); got != want {
		t.Fatalf("table crc=0x%02X bitwise crc=0x%02X", got, want)
	}
}

func TestChecksum_AppendedCRCYieldsZero(t *testing.T) {
	id := []byte{0x01, 0x9A, 0x3C, 0x55, 0x10, 0x00, 0x00}
	full := append(id, Checksum(id))

	if got := Checksum(full); got != 0 {
		t.Fatalf("crc over id+crc should be zero, got 0x%02X", got)
	}
}

func TestValid(t *testing.T) {
	good := []byte{0x02, 0x1C, 0xB8, 0x01, 0x00, 0x00, 0x00, 0xA2}
	if !Valid(good) {
		t.Fatalf("expected valid identifier")
	}

	bad := []byte{0x02, 0x1C, 0xB8, 0x01, 0x00, 0x00, 0x00, 0xA3}
	if Valid(bad) {
		t.Fatalf("expected invalid identifier")
	}

	if Valid(good[:7]) {
		t.Fatalf("short identifier must not be valid")
	}
}
