// Copyright © 2026, SAS Institute Inc., Cary, NC, USA.  All Rights Reserved.
// SPDX-License-Identifier: BSD-3-Clause

package jsguard

import (
	"bytes"
	"compress/zlib"
	"encoding/ascii85"
	"fmt"
	"io"

	"github.com/sassoftware/viya-pdf-jsguard/logger"
)

// maxDecodedStream bounds the output of a single stream decode.
const maxDecodedStream = 64 << 20

// decodeStream applies the filter chain named by filter to raw.
// params holds the matching DecodeParms (a dict, or an array parallel to filter).
func decodeStream(raw []byte, filter, params Value) ([]byte, error) {
	var err error
	switch filter.Kind() {
	case Null:
		return raw, nil
	case Name:
		return applyFilter(raw, filter.Name(), params)
	case Array:
		for i := 0; i < filter.Len(); i++ {
			p := params
			if params.Kind() == Array {
				p = params.Index(i)
			}
			if raw, err = applyFilter(raw, filter.Index(i).Name(), p); err != nil {
				return nil, err
			}
		}
		return raw, nil
	}
	return nil, fmt.Errorf("unsupported filter %v", filter)
}

func applyFilter(raw []byte, filter string, param Value) ([]byte, error) {
	switch filter {
	case "FlateDecode", "Fl":
		out, err := inflate(raw)
		if err != nil {
			return nil, err
		}
		return applyPredictor(out, param)
	case "ASCII85Decode", "A85":
		return decodeASCII85(raw)
	case "ASCIIHexDecode", "AHx":
		return decodeASCIIHex(raw), nil
	}
	return nil, fmt.Errorf("unsupported filter %s", filter)
}

// inflate decompresses zlib data. Truncated input yields whatever was
// recovered before the damage, which is common in crafted files.
func inflate(raw []byte) ([]byte, error) {
	zr, err := zlib.NewReader(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("FlateDecode: %w", err)
	}
	defer zr.Close()
	out, err := io.ReadAll(io.LimitReader(zr, maxDecodedStream))
	if err != nil {
		if len(out) == 0 {
			return nil, fmt.Errorf("FlateDecode: %w", err)
		}
		logger.Debug(fmt.Sprintf("filter: FlateDecode recovered %d bytes before %v", len(out), err), true)
	}
	return out, nil
}

// applyPredictor undoes PNG row predictors (Predictor >= 10).
func applyPredictor(data []byte, param Value) ([]byte, error) {
	pred := param.Key("Predictor").Int64()
	if pred < 10 {
		return data, nil
	}
	columns := int(param.Key("Columns").Int64())
	if columns <= 0 {
		columns = 1
	}
	colors := int(param.Key("Colors").Int64())
	if colors <= 0 {
		colors = 1
	}
	bpc := int(param.Key("BitsPerComponent").Int64())
	if bpc <= 0 {
		bpc = 8
	}
	bpp := (colors*bpc + 7) / 8
	rowLen := (columns*colors*bpc + 7) / 8

	out := make([]byte, 0, len(data))
	prev := make([]byte, rowLen)
	for len(data) > 0 {
		if len(data) < rowLen+1 {
			break
		}
		typ, row := data[0], data[1:rowLen+1]
		data = data[rowLen+1:]
		cur := make([]byte, rowLen)
		for i := range row {
			var left, upLeft byte
			if i >= bpp {
				left = cur[i-bpp]
				upLeft = prev[i-bpp]
			}
			up := prev[i]
			switch typ {
			case 0:
				cur[i] = row[i]
			case 1:
				cur[i] = row[i] + left
			case 2:
				cur[i] = row[i] + up
			case 3:
				cur[i] = row[i] + byte((int(left)+int(up))/2)
			case 4:
				cur[i] = row[i] + paeth(left, up, upLeft)
			default:
				return nil, fmt.Errorf("malformed PNG predictor row type %d", typ)
			}
		}
		out = append(out, cur...)
		prev = cur
	}
	return out, nil
}

func paeth(a, b, c byte) byte {
	p := int(a) + int(b) - int(c)
	pa, pb, pc := abs(p-int(a)), abs(p-int(b)), abs(p-int(c))
	switch {
	case pa <= pb && pa <= pc:
		return a
	case pb <= pc:
		return b
	}
	return c
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}

func decodeASCII85(raw []byte) ([]byte, error) {
	clean := make([]byte, 0, len(raw))
	for _, c := range raw {
		if isSpace(c) {
			continue
		}
		clean = append(clean, c)
	}
	clean = bytes.TrimPrefix(clean, []byte("<~"))
	if i := bytes.Index(clean, []byte("~>")); i >= 0 {
		clean = clean[:i]
	}
	out, err := io.ReadAll(ascii85.NewDecoder(bytes.NewReader(clean)))
	if err != nil && len(out) == 0 {
		return nil, fmt.Errorf("ASCII85Decode: %w", err)
	}
	return out, nil
}

func decodeASCIIHex(raw []byte) []byte {
	out := make([]byte, 0, len(raw)/2)
	hi := -1
	for _, c := range raw {
		if c == '>' {
			break
		}
		x := unhex(c)
		if x < 0 {
			continue
		}
		if hi < 0 {
			hi = x
			continue
		}
		out = append(out, byte(hi<<4|x))
		hi = -1
	}
	if hi >= 0 {
		out = append(out, byte(hi<<4))
	}
	return out
}
