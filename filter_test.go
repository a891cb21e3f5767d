// Copyright © 2026, SAS Institute Inc., Cary, NC, USA.  All Rights Reserved.
// SPDX-License-Identifier: BSD-3-Clause

package jsguard

import (
	"bytes"
	"encoding/ascii85"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApplyFilter(t *testing.T) {
	plain := []byte("/JS (app.alert(1))")

	t.Run("FlateDecode", func(t *testing.T) {
		out, err := applyFilter(deflate(t, plain), "FlateDecode", Value{})
		require.NoError(t, err)
		assert.Equal(t, plain, out)
	})

	t.Run("ASCII85Decode", func(t *testing.T) {
		enc := make([]byte, ascii85.MaxEncodedLen(len(plain)))
		n := ascii85.Encode(enc, plain)
		// wrapped over two lines with delimiters, as written in files
		raw := append([]byte("<~"), enc[:n/2]...)
		raw = append(raw, '\n')
		raw = append(raw, enc[n/2:n]...)
		raw = append(raw, "~>"...)

		out, err := applyFilter(raw, "A85", Value{})
		require.NoError(t, err)
		assert.Equal(t, plain, out)
	})

	t.Run("ASCIIHexDecode", func(t *testing.T) {
		out, err := applyFilter([]byte("2F 4A53\n2>"), "ASCIIHexDecode", Value{})
		require.NoError(t, err)
		assert.Equal(t, []byte("/JS "), out)
	})

	t.Run("Unsupported", func(t *testing.T) {
		_, err := applyFilter(plain, "DCTDecode", Value{})
		assert.ErrorContains(t, err, "unsupported filter DCTDecode")
	})

	t.Run("FlateGarbage", func(t *testing.T) {
		_, err := applyFilter([]byte("not zlib at all"), "FlateDecode", Value{})
		assert.Error(t, err)
	})
}

func TestInflateTruncated(t *testing.T) {
	var buf bytes.Buffer
	for i := 0; i < 5000; i++ {
		fmt.Fprintf(&buf, "obj %d app.alert(%d);\n", i, i*i)
	}
	plain := buf.Bytes()
	comp := deflate(t, plain)

	out, err := inflate(comp[:len(comp)/2])
	require.NoError(t, err)
	assert.NotEmpty(t, out)
	assert.True(t, bytes.HasPrefix(plain, out))
}

func TestDecodeStreamChain(t *testing.T) {
	plain := []byte("<< /S /JavaScript >>")
	comp := deflate(t, plain)
	hex := []byte{}
	for _, c := range comp {
		hex = append(hex, "0123456789ABCDEF"[c>>4], "0123456789ABCDEF"[c&15])
	}
	hex = append(hex, '>')

	filter := Value{data: array{name("ASCIIHexDecode"), name("FlateDecode")}}
	out, err := decodeStream(hex, filter, Value{})
	require.NoError(t, err)
	assert.Equal(t, plain, out)

	out, err = decodeStream(plain, Value{}, Value{})
	require.NoError(t, err)
	assert.Equal(t, plain, out)

	_, err = decodeStream(plain, Value{data: int64(3)}, Value{})
	assert.Error(t, err)
}

func TestApplyPredictor(t *testing.T) {
	params := Value{data: dict{"Predictor": int64(12), "Columns": int64(3)}}

	// row 1 is stored with filter None, row 2 with filter Up
	data := []byte{
		0, 1, 2, 3,
		2, 1, 1, 1,
	}
	out, err := applyPredictor(data, params)
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 3, 2, 3, 4}, out)

	// Sub adds the byte to the left
	out, err = applyPredictor([]byte{1, 5, 1, 1}, params)
	require.NoError(t, err)
	assert.Equal(t, []byte{5, 6, 7}, out)

	_, err = applyPredictor([]byte{9, 0, 0, 0}, params)
	assert.Error(t, err)

	// no predictor leaves data alone
	out, err = applyPredictor(data, Value{})
	require.NoError(t, err)
	assert.Equal(t, data, out)
}

func TestPaeth(t *testing.T) {
	assert.Equal(t, byte(10), paeth(10, 20, 20))
	assert.Equal(t, byte(20), paeth(10, 20, 10))
	assert.Equal(t, byte(15), paeth(10, 20, 15))
}
