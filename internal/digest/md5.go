// Package digest implements the MD5 message digest (RFC 1321) used to derive
// cache keys.
package digest

import (
	"encoding/binary"
	"encoding/hex"
	"hash"
	"math/bits"
)

const (
	// Size is the length of a digest in bytes.
	Size = 16
	// BlockSize is the chunk size the compression function works on.
	BlockSize = 64
)

var initState = [4]uint32{0x67452301, 0xefcdab89, 0x98badcfe, 0x10325476}

// Per-round left rotation amounts, four per quarter repeated four times.
var shifts = [64]uint8{
	7, 12, 17, 22, 7, 12, 17, 22, 7, 12, 17, 22, 7, 12, 17, 22,
	5, 9, 14, 20, 5, 9, 14, 20, 5, 9, 14, 20, 5, 9, 14, 20,
	4, 11, 16, 23, 4, 11, 16, 23, 4, 11, 16, 23, 4, 11, 16, 23,
	6, 10, 15, 21, 6, 10, 15, 21, 6, 10, 15, 21, 6, 10, 15, 21,
}

// k[i] = floor(|sin(i+1)| * 2^32)
var k = [64]uint32{
	0xd76aa478, 0xe8c7b756, 0x242070db, 0xc1bdceee,
	0xf57c0faf, 0x4787c62a, 0xa8304613, 0xfd469501,
	0x698098d8, 0x8b44f7af, 0xffff5bb1, 0x895cd7be,
	0x6b901122, 0xfd987193, 0xa679438e, 0x49b40821,
	0xf61e2562, 0xc040b340, 0x265e5a51, 0xe9b6c7aa,
	0xd62f105d, 0x02441453, 0xd8a1e681, 0xe7d3fbc8,
	0x21e1cde6, 0xc33707d6, 0xf4d50d87, 0x455a14ed,
	0xa9e3e905, 0xfcefa3f8, 0x676f02d9, 0x8d2a4c8a,
	0xfffa3942, 0x8771f681, 0x6d9d6122, 0xfde5380c,
	0xa4beea44, 0x4bdecfa9, 0xf6bb4b60, 0xbebfbc70,
	0x289b7ec6, 0xeaa127fa, 0xd4ef3085, 0x04881d05,
	0xd9d4d039, 0xe6db99e5, 0x1fa27cf8, 0xc4ac5665,
	0xf4292244, 0x432aff97, 0xab9423a7, 0xfc93a039,
	0x655b59c3, 0x8f0ccc92, 0xffeff47d, 0x85845dd1,
	0x6fa87e4f, 0xfe2ce6e0, 0xa3014314, 0x4e0811a1,
	0xf7537e82, 0xbd3af235, 0x2ad7d2bb, 0xeb86d391,
}

type state struct {
	s   [4]uint32
	buf [BlockSize]byte
	nx  int
	len uint64
}

// New returns a hash.Hash computing the MD5 checksum.
func New() hash.Hash {
	d := &state{}
	d.Reset()
	return d
}

// Sum returns the MD5 checksum of data.
func Sum(data []byte) [Size]byte {
	var d state
	d.Reset()
	_, _ = d.Write(data)
	return d.checkSum()
}

// Hex returns the MD5 checksum of data as 32 lowercase hexadecimal characters.
func Hex(data []byte) string {
	sum := Sum(data)
	return hex.EncodeToString(sum[:])
}

// String is Hex over the UTF-8 bytes of s.
func String(s string) string {
	return Hex([]byte(s))
}

func (d *state) Reset() {
	d.s = initState
	d.nx = 0
	d.len = 0
}

func (d *state) Size() int { return Size }

func (d *state) BlockSize() int { return BlockSize }

func (d *state) Write(p []byte) (int, error) {
	n := len(p)
	d.len += uint64(n)
	if d.nx > 0 {
		c := copy(d.buf[d.nx:], p)
		d.nx += c
		if d.nx == BlockSize {
			block(&d.s, d.buf[:])
			d.nx = 0
		}
		p = p[c:]
	}
	for len(p) >= BlockSize {
		block(&d.s, p[:BlockSize])
		p = p[BlockSize:]
	}
	if len(p) > 0 {
		d.nx = copy(d.buf[:], p)
	}
	return n, nil
}

func (d *state) Sum(in []byte) []byte {
	// Finalize a copy so the caller can keep writing.
	c := *d
	sum := c.checkSum()
	return append(in, sum[:]...)
}

func (d *state) checkSum() [Size]byte {
	bitLen := d.len << 3

	// One set bit, then zeros up to 56 mod 64, then the 64-bit length.
	var pad [BlockSize]byte
	pad[0] = 0x80
	rem := d.len % BlockSize
	padLen := 56 - rem
	if rem >= 56 {
		padLen = BlockSize + 56 - rem
	}
	_, _ = d.Write(pad[:padLen])

	var lenBuf [8]byte
	binary.LittleEndian.PutUint64(lenBuf[:], bitLen)
	_, _ = d.Write(lenBuf[:])

	var out [Size]byte
	for i, v := range d.s {
		binary.LittleEndian.PutUint32(out[i*4:], v)
	}
	return out
}

func block(s *[4]uint32, p []byte) {
	var m [16]uint32
	for i := range m {
		m[i] = binary.LittleEndian.Uint32(p[i*4:])
	}

	a, b, c, d := s[0], s[1], s[2], s[3]
	for i := 0; i < 64; i++ {
		var f uint32
		var g int
		switch {
		case i < 16:
			f = (b & c) | (^b & d)
			g = i
		case i < 32:
			f = (d & b) | (^d & c)
			g = (5*i + 1) % 16
		case i < 48:
			f = b ^ c ^ d
			g = (3*i + 5) % 16
		default:
			f = c ^ (b | ^d)
			g = (7 * i) % 16
		}
		f += a + k[i] + m[g]
		a, d, c = d, c, b
		b += bits.RotateLeft32(f, int(shifts[i]))
	}

	s[0] += a
	s[1] += b
	s[2] += c
	s[3] += d
}
