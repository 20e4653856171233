// Package envelope wraps persisted chunk bytes in an optional LZ4 or ZSTD
// block envelope.
//
// Layout: [kind u8][raw length u32][stored length u32][data]. A stored length
// of zero means the data follows uncompressed. Blocks that do not shrink below
// 90% of their raw size are stored uncompressed.
package envelope

import (
	"encoding/binary"
	"errors"
	"fmt"
	"sync"

	"github.com/hupe1980/fvec/internal/conv"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Compression selects the envelope algorithm.
type Compression uint8

const (
	// None stores the payload as is.
	None Compression = 0
	// LZ4 is fast block compression, good for hot chunks.
	LZ4 Compression = 1
	// ZSTD has a better ratio, good for cold chunks.
	ZSTD Compression = 2
)

func (c Compression) String() string {
	switch c {
	case None:
		return "none"
	case LZ4:
		return "lz4"
	case ZSTD:
		return "zstd"
	}
	return fmt.Sprintf("Compression(%d)", uint8(c))
}

// ErrCorrupt reports an envelope that cannot be opened.
var ErrCorrupt = errors.New("envelope: corrupt")

// HeaderSize is the size of the envelope header.
const HeaderSize = 9

const minRatio = 0.9

var (
	zstdEncoderPool sync.Pool
	zstdDecoderPool sync.Pool
)

func getZstdEncoder() *zstd.Encoder {
	if v := zstdEncoderPool.Get(); v != nil {
		return v.(*zstd.Encoder)
	}
	enc, _ := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	return enc
}

func getZstdDecoder() *zstd.Decoder {
	if v := zstdDecoderPool.Get(); v != nil {
		return v.(*zstd.Decoder)
	}
	dec, _ := zstd.NewReader(nil)
	return dec
}

// Seal wraps data in an envelope, compressing it with c when that pays off.
func Seal(data []byte, c Compression) ([]byte, error) {
	raw, err := conv.IntToUint32(len(data))
	if err != nil {
		return nil, fmt.Errorf("envelope: %w", err)
	}

	var packed []byte
	switch c {
	case None:
	case LZ4:
		if packed, err = compressLZ4(data); err != nil {
			return nil, err
		}
	case ZSTD:
		enc := getZstdEncoder()
		packed = enc.EncodeAll(data, nil)
		zstdEncoderPool.Put(enc)
	default:
		return nil, fmt.Errorf("envelope: unknown compression %d", c)
	}

	if len(packed) == 0 || float64(len(packed)) > float64(len(data))*minRatio {
		return frame(c, raw, 0, data), nil
	}
	return frame(c, raw, uint32(len(packed)), packed), nil
}

func frame(c Compression, raw, stored uint32, data []byte) []byte {
	out := make([]byte, HeaderSize+len(data))
	out[0] = byte(c)
	binary.LittleEndian.PutUint32(out[1:], raw)
	binary.LittleEndian.PutUint32(out[5:], stored)
	copy(out[HeaderSize:], data)
	return out
}

func compressLZ4(data []byte) ([]byte, error) {
	buf := make([]byte, lz4.CompressBlockBound(len(data)))
	n, err := lz4.CompressBlock(data, buf, nil)
	if err != nil {
		return nil, fmt.Errorf("envelope: lz4: %w", err)
	}
	return buf[:n], nil
}

// Open unwraps an envelope. Uncompressed payloads alias env.
func Open(env []byte) ([]byte, error) {
	if len(env) < HeaderSize {
		return nil, fmt.Errorf("%w: %d bytes is shorter than the header", ErrCorrupt, len(env))
	}
	c := Compression(env[0])
	raw, err := conv.Uint32ToInt(binary.LittleEndian.Uint32(env[1:]))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	stored, err := conv.Uint32ToInt(binary.LittleEndian.Uint32(env[5:]))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	body := env[HeaderSize:]

	if stored == 0 {
		if len(body) != raw {
			return nil, fmt.Errorf("%w: body is %d bytes, want %d", ErrCorrupt, len(body), raw)
		}
		return body, nil
	}
	if len(body) != stored {
		return nil, fmt.Errorf("%w: body is %d bytes, want %d", ErrCorrupt, len(body), stored)
	}
	if int64(raw) > int64(stored)*maxExpansion(c) {
		return nil, fmt.Errorf("%w: %d bytes cannot expand to %d with %s", ErrCorrupt, stored, raw, c)
	}

	out := make([]byte, raw)
	switch c {
	case LZ4:
		n, err := lz4.UncompressBlock(body, out)
		if err != nil {
			return nil, fmt.Errorf("%w: lz4: %v", ErrCorrupt, err)
		}
		if n != raw {
			return nil, fmt.Errorf("%w: decompressed %d bytes, want %d", ErrCorrupt, n, raw)
		}
		return out, nil
	case ZSTD:
		dec := getZstdDecoder()
		defer zstdDecoderPool.Put(dec)
		decoded, err := dec.DecodeAll(body, out[:0])
		if err != nil {
			return nil, fmt.Errorf("%w: zstd: %v", ErrCorrupt, err)
		}
		if len(decoded) != raw {
			return nil, fmt.Errorf("%w: decompressed %d bytes, want %d", ErrCorrupt, len(decoded), raw)
		}
		return decoded, nil
	}
	return nil, fmt.Errorf("%w: compressed body with kind %s", ErrCorrupt, c)
}

// maxExpansion is the largest raw/stored ratio a well-formed body of kind c
// can reach. The densest zstd block is a 4-byte RLE block of 128 KiB.
func maxExpansion(c Compression) int64 {
	switch c {
	case LZ4:
		return 255
	case ZSTD:
		return 1 << 15
	}
	return 1
}

// Compressed reports whether env holds a compressed body.
func Compressed(env []byte) bool {
	return len(env) >= HeaderSize && binary.LittleEndian.Uint32(env[5:]) != 0
}
