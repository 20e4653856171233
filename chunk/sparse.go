package chunk

import "github.com/hupe1980/fvec/internal/layout"

// entryOff returns the byte offset of the k-th stored sparse entry.
func (f *Frozen) entryOff(k int) int {
	return f.off + k*(f.ridsz+f.valsz)
}

// rowAt returns the chunk row of the k-th stored sparse entry.
func (f *Frozen) rowAt(k int) int {
	off := f.entryOff(k)
	if f.ridsz == 2 {
		return int(layout.Get2(f.mem, off)) & 0xFFFF
	}
	return int(layout.Get4(f.mem, off))
}

// lookup finds the stored entry for row. When row is not stored it returns
// the entry preceding it (or 0) and false. The last hit is remembered and the
// entry after it is checked before falling back to binary search, which makes
// in-order scans constant time per row.
func (f *Frozen) lookup(row int) (int, bool) {
	if f.stored == 0 {
		return 0, false
	}
	k := int(f.last.Load())
	if k >= f.stored {
		k = 0
	}
	id := f.rowAt(k)
	if row == id {
		return k, true
	}
	if row > id && k+1 < f.stored {
		next := f.rowAt(k + 1)
		if row < next {
			return k, false
		}
		if row == next {
			f.last.Store(int32(k + 1))
			return k + 1, true
		}
	}
	lo, hi := 0, f.stored
	for lo+1 != hi {
		mid := int(uint(lo+hi) >> 1)
		if row < f.rowAt(mid) {
			hi = mid
		} else {
			lo = mid
		}
	}
	f.last.Store(int32(lo))
	return lo, f.rowAt(lo) == row
}

// sparseInt returns the stored integer of entry k.
func (f *Frozen) sparseInt(k int) int64 {
	return layout.GetN(f.mem, f.entryOff(k)+f.ridsz, f.valsz)
}

// sparseReal returns the stored float of entry k.
func (f *Frozen) sparseReal(k int) float64 {
	off := f.entryOff(k) + f.ridsz
	if f.valsz == 4 {
		return layout.Get4f(f.mem, off)
	}
	return layout.Get8d(f.mem, off)
}

func (f *Frozen) sparseNA(k int) bool {
	switch f.tag {
	case TagCXI:
		return f.sparseInt(k) == layout.NAForWidth(f.valsz)
	case TagCXD:
		d := f.sparseReal(k)
		return d != d
	default:
		return false
	}
}
