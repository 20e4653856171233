package codec

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type manifest struct {
	Name   string  `json:"name"`
	Rows   int64   `json:"rows"`
	Starts []int64 `json:"espc"`
}

func TestByName(t *testing.T) {
	for _, name := range []string{"json", "go-json"} {
		c, ok := ByName(name)
		require.True(t, ok)
		assert.Equal(t, name, c.Name())
	}
	_, ok := ByName("msgpack")
	assert.False(t, ok)
}

func TestWrapUnwrap(t *testing.T) {
	in := manifest{Name: "price", Rows: 131073, Starts: []int64{0, 65536, 131072, 131073}}

	for _, c := range []Codec{JSON{}, GoJSON{}} {
		t.Run(c.Name(), func(t *testing.T) {
			b, err := Wrap(c, in)
			require.NoError(t, err)
			assert.Equal(t, byte(len(c.Name())), b[0])

			var out manifest
			got, err := Unwrap(b, &out)
			require.NoError(t, err)
			assert.Equal(t, c.Name(), got.Name())
			assert.Equal(t, in, out)
		})
	}
}

func TestWrap_Default(t *testing.T) {
	b, err := Wrap(nil, manifest{Name: "x"})
	require.NoError(t, err)
	var out manifest
	c, err := Unwrap(b, &out)
	require.NoError(t, err)
	assert.Equal(t, Default.Name(), c.Name())
}

func TestUnwrap_Errors(t *testing.T) {
	var out manifest

	_, err := Unwrap(nil, &out)
	assert.Error(t, err)

	_, err = Unwrap([]byte{9, 'j'}, &out)
	assert.Error(t, err)

	_, err = Unwrap(append([]byte{3}, "xml{}"...), &out)
	assert.ErrorIs(t, err, ErrUnknownCodec)

	_, err = Unwrap(append([]byte{4}, "json{"...), &out)
	assert.Error(t, err)
}

func TestCodecsInteroperate(t *testing.T) {
	in := manifest{Name: "a", Rows: 3, Starts: []int64{0, 3}}
	b, err := GoJSON{}.Marshal(in)
	require.NoError(t, err)

	var out manifest
	require.NoError(t, JSON{}.Unmarshal(b, &out))
	assert.Equal(t, in, out)
}
