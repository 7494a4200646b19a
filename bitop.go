// Bit-level reader used by the codec sequence-header parsers in av.go.
//
// Read advances through the buffer a fixed number of bits at a time,
// crossing byte boundaries as needed; Look peeks the next n bits without
// consuming them. Both set iserro once the buffer is exhausted, and every
// further Read/Look returns 0 rather than panicking on a short buffer.

package main

type Bitop struct {
	buffer []byte
	buflen uint32
	bufpos uint32
	bufoff uint32
	iserro bool
}

func createBitop(buffer []byte) *Bitop {
	return &Bitop{
		buffer: buffer,
		buflen: uint32(len(buffer)),
		bufpos: 0,
		bufoff: 0,
		iserro: false,
	}
}

func (b *Bitop) Read(n uint32) uint32 {
	var v uint32
	var d uint32

	v = 0
	d = 0

	for n > 0 {
		if b.bufpos >= b.buflen {
			b.iserro = true
			return 0
		}

		b.iserro = false

		if b.bufoff+n > 8 {
			d = 8 - b.bufoff
		} else {
			d = n
		}

		v <<= d
		v += uint32((b.buffer[b.bufpos] >> byte(8-b.bufoff-d)) & (0xff >> byte(8-d)))

		b.bufoff += d
		n -= d

		if b.bufoff == 8 {
			b.bufpos++
			b.bufoff = 0
		}
	}

	return v
}

// Look reads n bits without advancing the cursor.
func (b *Bitop) Look(n uint32) uint32 {
	p := b.bufpos
	o := b.bufoff
	errBefore := b.iserro

	v := b.Read(n)

	b.bufpos = p
	b.bufoff = o
	b.iserro = errBefore

	return v
}

// ReadGolomb reads an Exp-Golomb coded unsigned value.
func (b *Bitop) ReadGolomb() uint32 {
	var n uint32

	n = 0

	for b.Read(1) == 0 && !b.iserro {
		n++
	}

	return (1 << n) + b.Read(n) - 1
}
