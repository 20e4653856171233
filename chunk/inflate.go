package chunk

import "math"

// Inflate decodes f into a new Builder holding the same logical values. A
// sparse encoding inflates to a sparse Builder and a constant zero to an
// empty sparse one.
func (f *Frozen) Inflate() *Builder {
	b := &Builder{}
	switch f.tag {
	case TagC0L:
		if f.con == 0 {
			return f.sparseBuilder(repNone)
		}
		b.dec.grow(f.n)
		for range f.n {
			b.AppendInt(f.con, 0)
		}
	case TagC0D:
		switch {
		case math.IsNaN(f.conD):
			for range f.n {
				b.AppendMissing()
			}
		case f.conD == 0:
			return f.sparseBuilder(repNone)
		default:
			b.ds = make([]float64, 0, f.n)
			for range f.n {
				b.AppendReal(f.conD)
			}
		}
	case TagC1N, TagC1, TagC2, TagC4, TagC8, TagCBS:
		b.dec.grow(f.n)
		for i := range f.n {
			if f.isNA(i) {
				b.AppendMissing()
			} else {
				b.AppendInt(f.at8(i), 0)
			}
		}
	case TagC1S, TagC2S, TagC4S:
		b.dec.grow(f.n)
		for i := range f.n {
			v, na := f.fixed(i)
			if na {
				b.AppendMissing()
			} else {
				b.AppendInt(v+f.bias, f.scale)
			}
		}
	case TagC4F, TagC8D:
		b.ds = make([]float64, 0, f.n)
		for i := range f.n {
			b.AppendReal(f.atd(i))
		}
	case TagCX0, TagCXI:
		b = f.sparseBuilder(repDecimal)
		for k := range f.stored {
			b.ids = append(b.ids, int32(f.rowAt(k)))
			switch {
			case f.tag == TagCX0:
				b.dec.push(1, 0)
			case f.sparseNA(k):
				b.dec.push(0, expNA)
			default:
				b.dec.push(f.sparseInt(k), 0)
			}
		}
	case TagCXD:
		b = f.sparseBuilder(repReal)
		for k := range f.stored {
			b.ids = append(b.ids, int32(f.rowAt(k)))
			b.ds = append(b.ds, f.sparseReal(k))
		}
	case TagC16:
		b.uu.lo = make([]int64, 0, f.n)
		b.uu.hi = make([]int64, 0, f.n)
		b.rep = repUUID
		for i := range f.n {
			b.appendUUID(f.uuid(i))
		}
	case TagCStr:
		b.offs = make([]int32, 0, f.n)
		b.rep = repText
		for i := range f.n {
			t, ok := f.text(i)
			if !ok {
				t = nil
			}
			b.appendText(t)
		}
	}
	return b
}

// sparseBuilder returns a sparse Builder of f.n rows with room for the
// stored entries of f.
func (f *Frozen) sparseBuilder(r rep) *Builder {
	b := &Builder{n: f.n, rep: r, ids: make([]int32, 0, f.stored)}
	switch r {
	case repDecimal:
		b.dec.grow(f.stored)
	case repReal:
		b.ds = make([]float64, 0, f.stored)
	}
	return b
}
