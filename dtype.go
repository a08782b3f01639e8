package dggs

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"
)

// Dtype is a simple zarr data type in NumPy typestr form: a byte order
// character, a basic type character and the size of one item. For unicode
// strings the size counts characters, for every other type it counts bytes.
type Dtype struct {
	ByteOrder ByteOrder
	BasicType BasicType
	ByteSize  int
	Units     string
}

var (
	_ json.Unmarshaler = (*Dtype)(nil)
	_ json.Marshaler   = (*Dtype)(nil)
)

// maxDtypeSize bounds the item size of a parsed Dtype, in bytes or characters
const maxDtypeSize = 1 << 20

func ParseDtype(s string) (dt Dtype, err error) {
	// bug in python implementation uses HTML escape sequences when serializaing JSON
	s = strings.Replace(s, "&lt;", "<", 1)
	s = strings.Replace(s, "&gt;", ">", 1)

	if len(s) < 3 {
		return dt, fmt.Errorf("invalid Dtype string. %q is too short", s)
	}

	if dt.ByteOrder, err = ParseByteOrder(rune(s[0])); err != nil {
		return dt, err
	}
	if dt.BasicType, err = ParseBasicType(rune(s[1])); err != nil {
		return dt, err
	}

	sizeStr := s[2:]
	if i := strings.IndexByte(sizeStr, '['); i >= 0 {
		sizeStr, dt.Units = sizeStr[:i], sizeStr[i:]
	}
	size, err := strconv.ParseInt(sizeStr, 10, 0)
	if err != nil {
		return dt, fmt.Errorf("invalid Dtype size %q: %w", sizeStr, err)
	}
	if size <= 0 || size > maxDtypeSize {
		return dt, fmt.Errorf("invalid Dtype size %d", size)
	}
	dt.ByteSize = int(size)
	return dt, nil
}

func (dt Dtype) String() string {
	return fmt.Sprintf("%s%s%d%s", string(dt.ByteOrder), string(dt.BasicType), dt.ByteSize, dt.Units)
}

func (dt Dtype) MarshalJSON() ([]byte, error) {
	return json.Marshal(dt.String())
}

func (dt *Dtype) UnmarshalJSON(d []byte) error {
	var s string
	if err := json.Unmarshal(d, &s); err != nil {
		return err
	}
	t, err := ParseDtype(s)
	if err != nil {
		return err
	}

	*dt = t
	return nil
}

// textual reports whether items decode to TextIDs rather than ZoneIDs
func (dt Dtype) textual() bool {
	return dt.BasicType == BTUnicode || dt.BasicType == BTString
}

// itemSize is the number of bytes one item occupies in a chunk
func (dt Dtype) itemSize() int {
	if dt.BasicType == BTUnicode {
		return 4 * dt.ByteSize
	}
	return dt.ByteSize
}

func (dt Dtype) order() binary.ByteOrder {
	if dt.ByteOrder == BOBigEndian {
		return binary.BigEndian
	}
	return binary.LittleEndian
}

// decodeZones fills dst with the first len(dst) integer items of b
func (dt Dtype) decodeZones(b []byte, dst []Zone) error {
	size := dt.itemSize()
	if size <= 0 || len(b)/size < len(dst) {
		return fmt.Errorf("chunk holds %d bytes, need %d", len(b), len(dst)*size)
	}
	bo := dt.order()
	for i := range dst {
		item := b[i*size : (i+1)*size]
		var (
			v   uint64
			neg bool
		)
		switch {
		case dt.BasicType == BTUnsigned && size == 1:
			v = uint64(item[0])
		case dt.BasicType == BTUnsigned && size == 2:
			v = uint64(bo.Uint16(item))
		case dt.BasicType == BTUnsigned && size == 4:
			v = uint64(bo.Uint32(item))
		case dt.BasicType == BTUnsigned && size == 8:
			v = bo.Uint64(item)
		case dt.BasicType == BTInteger && size == 1:
			x := int8(item[0])
			v, neg = uint64(x), x < 0
		case dt.BasicType == BTInteger && size == 2:
			x := int16(bo.Uint16(item))
			v, neg = uint64(x), x < 0
		case dt.BasicType == BTInteger && size == 4:
			x := int32(bo.Uint32(item))
			v, neg = uint64(x), x < 0
		case dt.BasicType == BTInteger && size == 8:
			x := int64(bo.Uint64(item))
			v, neg = uint64(x), x < 0
		default:
			return fmt.Errorf("unsupported cell identifier dtype %s", dt)
		}
		if neg {
			return fmt.Errorf("negative cell identifier at item %d", i)
		}
		dst[i] = v
	}
	return nil
}

// decodeText fills dst with the first len(dst) string items of b, dropping
// trailing NUL padding
func (dt Dtype) decodeText(b []byte, dst []string) error {
	size := dt.itemSize()
	if size <= 0 || len(b)/size < len(dst) {
		return fmt.Errorf("chunk holds %d bytes, need %d", len(b), len(dst)*size)
	}
	bo := dt.order()
	for i := range dst {
		item := b[i*size : (i+1)*size]
		switch dt.BasicType {
		case BTString:
			dst[i] = string(bytes.TrimRight(item, "\x00"))
		case BTUnicode:
			var sb strings.Builder
			for j := 0; j < len(item); j += 4 {
				r := rune(bo.Uint32(item[j:]))
				if r == 0 {
					break
				}
				sb.WriteRune(r)
			}
			dst[i] = sb.String()
		default:
			return fmt.Errorf("unsupported cell identifier dtype %s", dt)
		}
	}
	return nil
}

// cellDtype picks the dtype WriteVariable stores cells with
func cellDtype(cells CellIDs) Dtype {
	switch c := cells.(type) {
	case TextIDs:
		width := 1
		for _, s := range c {
			if n := utf8.RuneCountInString(s); n > width {
				width = n
			}
		}
		return Dtype{ByteOrder: BOLittleEndian, BasicType: BTUnicode, ByteSize: width}
	default:
		return Dtype{ByteOrder: BOLittleEndian, BasicType: BTUnsigned, ByteSize: 8}
	}
}

// encodeCells writes items [from, to) of cells padded to n items
func (dt Dtype) encodeCells(cells CellIDs, from, to, n int) []byte {
	size := dt.itemSize()
	buf := make([]byte, n*size)
	bo := dt.order()
	switch c := cells.(type) {
	case ZoneIDs:
		for i, z := range c[from:to] {
			bo.PutUint64(buf[i*size:], z)
		}
	case TextIDs:
		for i, s := range c[from:to] {
			off := i * size
			for _, r := range s {
				bo.PutUint32(buf[off:], uint32(r))
				off += 4
			}
		}
	}
	return buf
}

type ByteOrder rune

func ParseByteOrder(r rune) (ByteOrder, error) {
	o := ByteOrder(r)
	if _, ok := byteOrders[o]; !ok {
		return o, fmt.Errorf("unsupported byte order format: %q", r)
	}
	return o, nil
}

const (
	BONotRelevant  ByteOrder = '|'
	BOLittleEndian ByteOrder = '<'
	BOBigEndian    ByteOrder = '>'
)

var byteOrders = map[ByteOrder]struct{}{
	BONotRelevant:  {},
	BOLittleEndian: {},
	BOBigEndian:    {},
}

type BasicType rune

func ParseBasicType(r rune) (BasicType, error) {
	t := BasicType(r)
	if _, ok := basicTypes[t]; !ok {
		return t, fmt.Errorf("unsupported basic type: %q", r)
	}
	return t, nil
}

func (bt BasicType) Human() string {
	return basicTypes[bt]
}

const (
	BTBoolean       BasicType = 'b'
	BTInteger       BasicType = 'i'
	BTUnsigned      BasicType = 'u'
	BTFloatingPoint BasicType = 'f'
	BTComplex       BasicType = 'c'
	BTTimedelta     BasicType = 'm'
	BTDatetime      BasicType = 'M'
	BTString        BasicType = 'S'
	BTUnicode       BasicType = 'U'
	BTOther         BasicType = 'V'
)

var basicTypes = map[BasicType]string{
	BTBoolean:       "bool",
	BTInteger:       "int",
	BTUnsigned:      "uint",
	BTFloatingPoint: "float64",
	BTComplex:       "complex",
	BTTimedelta:     "timeDelta",
	BTDatetime:      "dateTime",
	BTString:        "string",
	BTUnicode:       "unicode",
	BTOther:         "other",
}
