// internal/crc8/crc8.go
package crc8

// Dallas/Maxim 1-Wire CRC: x^8 + x^5 + x^4 + 1, processed LSB first,
// which is the reflected polynomial 0x8C. Seed is zero.
const (
	Polynomial byte = 0x8C
	Seed       byte = 0x00
)

var table = func() [256]byte {
	var t [256]byte
	for i := 0; i < 256; i++ {
		t[i] = update(Seed, byte(i))
	}
	return t
}()

// update folds one byte into crc bit by bit.
func update(crc, b byte) byte {
	for i := 0; i < 8; i++ {
		mix := (crc ^ b) & 0x01
		crc >>= 1
		if mix != 0 {
			crc ^= Polynomial
		}
		b >>= 1
	}
	return crc
}

// Checksum computes the CRC8 of data.
func Checksum(data []byte) byte {
	crc := Seed
	for _, b := range data {
		crc = table[crc^b]
	}
	return crc
}

// Valid reports whether id is an 8-byte identifier whose last byte
// is the CRC8 of the first seven.
func Valid(id []byte) bool {
	if len(id) != 8 {
		return false
	}
	return id[7] == Checksum(id[:7])
}
