package seq

// BitSeq is a 2-bit packed DNA sequence: A=00, C=01, G=10, T=11, four
// bases per byte packed MSB first ("ACGT" -> 0b00011011). N and other
// ambiguity codes collapse to A; callers that care about N must track it
// separately.
type BitSeq struct {
	data   []byte
	length int
}

// codeCounts maps a packed byte to the number of occurrences of each
// 2-bit code within it. Built once at init.
var codeCounts [256][4]uint8

// revCompByte maps a packed byte to its complemented, base-reversed form.
var revCompByte [256]byte

func init() {
	for b := 0; b < 256; b++ {
		for shift := 6; shift >= 0; shift -= 2 {
			code := (b >> shift) & 0b11
			codeCounts[b][code]++
		}
		// Complement is XOR 0xFF; reversing swaps the four 2-bit lanes.
		c := b ^ 0xFF
		revCompByte[b] = byte((c&0b11)<<6 | (c>>2&0b11)<<4 | (c>>4&0b11)<<2 | (c >> 6 & 0b11))
	}
}

// Pack encodes an ASCII sequence into 2-bit form.
func Pack(sequence []byte) BitSeq {
	data := make([]byte, (len(sequence)+3)/4)
	for i, base := range sequence {
		data[i/4] |= encodeBase(base) << (6 - uint(i%4)*2)
	}

	return BitSeq{data: data, length: len(sequence)}
}

// Len returns the number of bases.
func (s BitSeq) Len() int { return s.length }

// Bytes exposes the packed representation. The final byte may carry
// zero padding beyond Len.
func (s BitSeq) Bytes() []byte { return s.data }

// Unpack decodes back to ASCII.
func (s BitSeq) Unpack() []byte {
	out := make([]byte, s.length)
	for i := 0; i < s.length; i++ {
		out[i] = decodeBase(s.code(i))
	}

	return out
}

// Base returns the ASCII base at index i.
func (s BitSeq) Base(i int) byte {
	return decodeBase(s.code(i))
}

func (s BitSeq) code(i int) byte {
	return (s.data[i/4] >> (6 - uint(i%4)*2)) & 0b11
}

// CountBase counts occurrences of one base using the per-byte table.
func (s BitSeq) CountBase(base byte) int {
	code := encodeBase(base)
	total := 0
	full := s.length / 4
	for _, b := range s.data[:full] {
		total += int(codeCounts[b][code])
	}
	for i := full * 4; i < s.length; i++ {
		if s.code(i) == code {
			total++
		}
	}

	return total
}

// ReverseComplement returns the reverse complement, computed on packed
// bytes with a lookup table. Only the tail byte needs per-base handling
// when the length is not a multiple of four.
func (s BitSeq) ReverseComplement() BitSeq {
	if s.length%4 != 0 {
		// Realign through ASCII for ragged tails.
		ascii := s.Unpack()
		complementASCII(ascii)
		reverseBytes(ascii)

		return Pack(ascii)
	}

	data := make([]byte, len(s.data))
	for i, b := range s.data {
		data[len(s.data)-1-i] = revCompByte[b]
	}

	return BitSeq{data: data, length: s.length}
}

func encodeBase(base byte) byte {
	switch base {
	case 'A', 'a':
		return 0b00
	case 'C', 'c':
		return 0b01
	case 'G', 'g':
		return 0b10
	case 'T', 't':
		return 0b11
	default:
		return 0b00
	}
}

func decodeBase(code byte) byte {
	return [4]byte{'A', 'C', 'G', 'T'}[code&0b11]
}

// asciiComplement maps each ASCII base to its complement, identity for
// everything else (N stays N).
var asciiComplement [256]byte

func init() {
	for i := 0; i < 256; i++ {
		asciiComplement[i] = byte(i)
	}
	for _, pair := range [][2]byte{{'A', 'T'}, {'C', 'G'}, {'a', 't'}, {'c', 'g'}} {
		asciiComplement[pair[0]] = pair[1]
		asciiComplement[pair[1]] = pair[0]
	}
}

// ComplementBase returns the Watson-Crick complement of an ASCII base,
// leaving N and unknown bytes unchanged.
func ComplementBase(base byte) byte {
	return asciiComplement[base]
}

func complementASCII(sequence []byte) {
	for i, b := range sequence {
		sequence[i] = asciiComplement[b]
	}
}

func reverseBytes(b []byte) {
	for i, j := 0, len(b)-1; i < j; i, j = i+1, j-1 {
		b[i], b[j] = b[j], b[i]
	}
}
