// internal/onewire/search.go
package onewire

// ResetSearch clears the search tree so the next Search starts over.
func (b *Bus) ResetSearch() {
	b.lastDiscrepancy = 0
	b.lastFamilyDiscrepancy = 0
	b.lastDeviceFlag = false
	b.rom = [8]byte{}
}

// Search runs one pass of the ROM search tree and returns the next identifier.
//
// false means no device answered this time, not end of sequence: a caller
// polling for a tag in contact tries once per poll and calls ResetSearch
// after every hit so the same tag is found again on the next poll.
func (b *Bus) Search() ([8]byte, bool) {
	var id [8]byte

	if b.lastDeviceFlag {
		b.ResetSearch()
		return id, false
	}

	if !b.Reset() {
		b.ResetSearch()
		return id, false
	}

	b.Write(CmdSearchROM)

	bitNumber := 1
	lastZero := 0
	romByte := 0
	romMask := byte(1)

	for romByte < 8 {
		bit := b.readBit()
		cmp := b.readBit()

		// no device participating
		if bit && cmp {
			break
		}

		var dir bool
		if bit != cmp {
			// all remaining devices agree on this bit
			dir = bit
		} else {
			// discrepancy: follow the previous path, then branch
			if bitNumber < b.lastDiscrepancy {
				dir = b.rom[romByte]&romMask != 0
			} else {
				dir = bitNumber == b.lastDiscrepancy
			}
			if !dir {
				lastZero = bitNumber
				if lastZero < 9 {
					b.lastFamilyDiscrepancy = lastZero
				}
			}
		}

		if dir {
			b.rom[romByte] |= romMask
		} else {
			b.rom[romByte] &^= romMask
		}
		b.writeBit(dir)

		bitNumber++
		romMask <<= 1
		if romMask == 0 {
			romByte++
			romMask = 1
		}
	}

	if bitNumber < 65 || b.rom[0] == 0 {
		b.ResetSearch()
		return id, false
	}

	b.lastDiscrepancy = lastZero
	if b.lastDiscrepancy == 0 {
		b.lastDeviceFlag = true
	}

	id = b.rom
	return id, true
}
