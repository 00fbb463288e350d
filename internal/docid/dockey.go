// Package docid defines the packed (volume, FRN) identifier shared by every
// other component of the indexing core.
package docid

import (
	"fmt"
	"strconv"
	"strings"
)

// DocKey is a 64-bit packed identifier: high 16 bits are the VolumeId, low
// 48 bits are the NTFS File Reference Number. It is stable across a
// volume's lifetime barring an $MFT reinit.
type DocKey uint64

const frnBits = 48
const frnMask = (uint64(1) << frnBits) - 1

// Pack combines a volume id and an FRN into a DocKey. The FRN is truncated
// to its low 48 bits; callers are expected to have already validated it.
func Pack(volume uint16, frn uint64) DocKey {
	return DocKey(uint64(volume)<<frnBits | (frn & frnMask))
}

// Split recovers the (volume, frn) pair packed into a DocKey.
func (d DocKey) Split() (volume uint16, frn uint64) {
	volume = uint16(uint64(d) >> frnBits)
	frn = uint64(d) & frnMask
	return
}

// Volume returns just the volume id component.
func (d DocKey) Volume() uint16 {
	v, _ := d.Split()
	return v
}

// FRN returns just the file-reference-number component.
func (d DocKey) FRN() uint64 {
	_, f := d.Split()
	return f
}

// String renders the textual round-trip form "<volume>:0x<frn-12-hex>".
func (d DocKey) String() string {
	v, f := d.Split()
	return fmt.Sprintf("%d:0x%012x", v, f)
}

// ParseDocKey parses the textual form produced by String back into a DocKey.
func ParseDocKey(s string) (DocKey, error) {
	parts := strings.SplitN(s, ":0x", 2)
	if len(parts) != 2 {
		return 0, fmt.Errorf("docid: malformed key %q: expected \"<volume>:0x<frn>\"", s)
	}

	volume, err := strconv.ParseUint(parts[0], 10, 16)
	if err != nil {
		return 0, fmt.Errorf("docid: malformed volume in %q: %w", s, err)
	}

	frn, err := strconv.ParseUint(parts[1], 16, 64)
	if err != nil {
		return 0, fmt.Errorf("docid: malformed frn in %q: %w", s, err)
	}
	if frn > frnMask {
		return 0, fmt.Errorf("docid: frn in %q exceeds 48 bits", s)
	}

	return Pack(uint16(volume), frn), nil
}
