package attendance

import (
	"fmt"

	"github.com/tartampluch/go-attendance/internal/apperr"
	"github.com/tartampluch/go-attendance/internal/config"
)

// PopulationCount returns the number of attendance days in m.
func PopulationCount(m Bitmask) int {
	// A single word with declared length 32 cannot fail.
	n, _ := Cardinality([]uint32{uint32(m & dayBits)}, config.BitmaskWidth)
	return n
}

// Cardinality counts the set bits of a bit array of declared length backed by
// words (bit i lives in words[i/32] at position i%32). Bits past length in
// the last word are masked off before counting: they may be set by whatever
// filled the backing store and are not part of the array.
func Cardinality(words []uint32, length int) (int, error) {
	if length < 0 || length > len(words)*32 {
		return 0, apperr.New(apperr.KindOutOfRange, fmt.Sprintf("%s: %d > %d", config.ErrBitLength, length, len(words)*32))
	}

	used := (length + 31) / 32
	count := 0
	for i := 0; i < used; i++ {
		w := words[i]
		if i == used-1 && length%32 != 0 {
			w &= ^(^uint32(0) << uint(length%32))
		}
		count += swar(w)
	}
	return count, nil
}

// swar is the branch-free parallel bit count.
func swar(c uint32) int {
	c = c - ((c >> 1) & 0x55555555)
	c = (c & 0x33333333) + ((c >> 2) & 0x33333333)
	c = (((c + (c >> 4)) & 0x0F0F0F0F) * 0x01010101) >> 24
	return int(c)
}
