package chunk

import "math"

// build appends vs to a new Builder.
func build(vs ...Value) *Builder {
	b := NewBuilder()
	for _, v := range vs {
		b.AppendValue(v)
	}
	return b
}

func ints(vs ...int64) []Value {
	out := make([]Value, len(vs))
	for i, v := range vs {
		out[i] = Int(v, 0)
	}
	return out
}

// capturePanic runs fn and returns the error it panicked with.
func capturePanic(fn func()) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err, _ = r.(error)
		}
	}()
	fn()
	return nil
}

var na = Missing()

func nan() float64 { return math.NaN() }
