package render

import (
	"bytes"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func cstr(buf []byte) string {
	if i := bytes.IndexByte(buf, 0); i >= 0 {
		return string(buf[:i])
	}
	return string(buf)
}

func TestAppendUint8(t *testing.T) {
	tests := []struct {
		given    uint8
		expected string
	}{
		{0, "  0"},
		{7, "  7"},
		{10, " 10"},
		{42, " 42"},
		{99, " 99"},
		{100, "100"},
		{105, "105"},
		{200, "200"},
		{255, "255"},
	}
	for _, test := range tests {
		t.Run(fmt.Sprint(test.given), func(t *testing.T) {
			buf := make([]byte, 4)
			n := AppendUint8(buf, test.given)
			assert.Equal(t, 3, n)
			assert.Equal(t, test.expected, cstr(buf))
			assert.Equal(t, byte(0), buf[3])
		})
	}
}

func TestAppendUint8_Truncation(t *testing.T) {
	buf := make([]byte, 3)
	n := AppendUint8(buf, 42)
	assert.Equal(t, 2, n)
	assert.Equal(t, " 4", cstr(buf))

	buf = make([]byte, 1)
	assert.Equal(t, 0, AppendUint8(buf, 42))
	assert.Equal(t, byte(0), buf[0])

	assert.Equal(t, 0, AppendUint8(nil, 42))
}

func TestAppendUint8_AppendsAfterPrefix(t *testing.T) {
	buf := make([]byte, 8)
	copy(buf, "ab")
	n := AppendUint8(buf, 7)
	assert.Equal(t, 3, n)
	assert.Equal(t, "ab  7", cstr(buf))
}

func TestAppendUint8_FullBuffer(t *testing.T) {
	buf := []byte{'a', 'b', 'c', 0}
	assert.Equal(t, 0, AppendUint8(buf, 1))
	assert.Equal(t, "abc", cstr(buf))

	// no terminator at all: the last byte is sacrificed
	buf = []byte("abcd")
	assert.Equal(t, 0, AppendUint8(buf, 1))
	assert.Equal(t, "abc", cstr(buf))
}

func TestAppendUint16(t *testing.T) {
	tests := []struct {
		val      uint16
		width    int
		expected string
	}{
		{230, 3, "230"},
		{25, 3, " 25"},
		{0, 3, "  0"},
		{1234, 3, "234"},
		{1005, 3, "  5"},
		{65535, 5, "65535"},
		{7, 1, "7"},
		{42, 9, "   42"},
	}
	for _, test := range tests {
		t.Run(fmt.Sprintf("%d/%d", test.val, test.width), func(t *testing.T) {
			buf := make([]byte, 8)
			n := AppendUint16(buf, test.val, test.width)
			assert.Equal(t, len(test.expected), n)
			assert.Equal(t, test.expected, cstr(buf))
		})
	}
	assert.Equal(t, 0, AppendUint16(make([]byte, 8), 1, 0))
}

func TestCentiseconds(t *testing.T) {
	assert.Equal(t, uint32(0), Centiseconds(0))
	assert.Equal(t, uint32(390_900), Centiseconds(3909))
	assert.Equal(t, uint32(3_599_900), Centiseconds(35_999))
	assert.Equal(t, uint32(0), Centiseconds(36_000))
	assert.Equal(t, uint32(390_900), Centiseconds(36_000+3909))
}

func TestCentiseconds_Large(t *testing.T) {
	values := []uint32{42_949_672, 42_949_673, 50_000_000, 2_359_296_000, ^uint32(0)}
	for _, v := range values {
		t.Run(fmt.Sprint(v), func(t *testing.T) {
			assert.Equal(t, (v%36_000)*100, Centiseconds(v))
		})
	}

	buf := make([]byte, 9)
	AppendTime(buf, Centiseconds(50_000_000))
	assert.Equal(t, " 8h53m20", cstr(buf))
}

func TestAppendTime(t *testing.T) {
	tests := []struct {
		name     string
		given    uint32
		expected string
	}{
		{"zero", 0, " 0h00m00"},
		{"1h5m9s", Centiseconds(3600 + 5*60 + 9), " 1h05m09"},
		{"one minute", Centiseconds(60), " 0h01m00"},
		{"one second", Centiseconds(1), " 0h00m01"},
		{"sub second dropped", Centiseconds(3909) + 99, " 1h05m09"},
		{"max", HourWrap - 1, " 9h59m59"},
		{"wrap", HourWrap, " 0h00m00"},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			buf := make([]byte, 9)
			n := AppendTime(buf, test.given)
			assert.Equal(t, 8, n)
			assert.Equal(t, test.expected, cstr(buf))
		})
	}
}

func TestAppendTime_Wraps(t *testing.T) {
	values := []uint32{HourWrap, HourWrap + 390_900, 2*HourWrap + 5, 4_000_000_000, ^uint32(0)}
	for _, v := range values {
		t.Run(fmt.Sprint(v), func(t *testing.T) {
			wrapped := make([]byte, 12)
			plain := make([]byte, 12)
			AppendTime(wrapped, v)
			AppendTime(plain, v%HourWrap)
			assert.Equal(t, cstr(plain), cstr(wrapped))
		})
	}
}

func TestAppendTime_Truncation(t *testing.T) {
	buf := make([]byte, 5)
	n := AppendTime(buf, Centiseconds(3909))
	assert.Equal(t, 4, n)
	assert.Equal(t, " 1h0", cstr(buf))

	buf = make([]byte, 4)
	n = AppendTime(buf, Centiseconds(3909))
	assert.Equal(t, 3, n, "separator counts as a written character")
	assert.Equal(t, " 1h", cstr(buf))
}

func TestAppendString(t *testing.T) {
	buf := make([]byte, 6)
	assert.Equal(t, 3, AppendString(buf, "abc"))
	assert.Equal(t, 2, AppendString(buf, "defg"))
	assert.Equal(t, "abcde", cstr(buf))
	assert.Equal(t, 0, AppendString(buf, "x"))
}

func TestComposedRendering(t *testing.T) {
	var full []byte
	{
		buf := make([]byte, 32)
		AppendUint8(buf, 42)
		AppendTime(buf, Centiseconds(3909))
		full = []byte(cstr(buf))
	}
	require.Equal(t, " 42 1h05m09", string(full))

	for capacity := 1; capacity <= 16; capacity++ {
		t.Run(fmt.Sprint(capacity), func(t *testing.T) {
			buf := make([]byte, capacity)
			n1 := AppendUint8(buf, 42)
			n2 := AppendTime(buf, Centiseconds(3909))
			expected := full
			if len(expected) > capacity-1 {
				expected = expected[:capacity-1]
			}
			assert.Equal(t, string(expected), cstr(buf))
			assert.Equal(t, len(expected), n1+n2)
		})
	}
}

func TestBoundsNeverExceeded(t *testing.T) {
	const guard = 0xAA
	renderers := map[string]func([]byte, uint32) int{
		"uint8":  func(b []byte, v uint32) int { return AppendUint8(b, uint8(v)) },
		"uint16": func(b []byte, v uint32) int { return AppendUint16(b, uint16(v), 5) },
		"time":   AppendTime,
		"string": func(b []byte, v uint32) int { return AppendString(b, fmt.Sprint(v)) },
	}
	values := []uint32{0, 1, 9, 10, 99, 100, 255, 3909, 390_900, HourWrap - 1, HourWrap, ^uint32(0)}
	for name, fn := range renderers {
		t.Run(name, func(t *testing.T) {
			for capacity := 0; capacity <= 12; capacity++ {
				for _, v := range values {
					backing := bytes.Repeat([]byte{guard}, 16)
					buf := backing[:capacity]
					if capacity > 0 {
						buf[0] = 0
					}
					n := fn(buf, v)
					for i := capacity; i < len(backing); i++ {
						require.Equal(t, byte(guard), backing[i], "cap %d value %d wrote past the buffer", capacity, v)
					}
					if capacity > 0 {
						require.NotEqual(t, -1, bytes.IndexByte(buf, 0), "cap %d value %d left no terminator", capacity, v)
						require.Equal(t, n, len(cstr(buf)))
					} else {
						require.Equal(t, 0, n)
					}
				}
			}
		})
	}
}

func TestLine(t *testing.T) {
	var l Line
	assert.Equal(t, "", l.String())
	l.AppendString("Tool: ")
	l.AppendUint16(220, 3)
	l.AppendString("/")
	l.AppendUint8(230)
	l.AppendString("C")
	assert.Equal(t, "Tool: 220/230C", l.String())
	assert.Equal(t, 14, l.Len())

	l.Reset()
	l.AppendString("Elapsed:  ")
	n := l.AppendTime(Centiseconds(3909))
	assert.Equal(t, 6, n, "16 columns leave room for six characters")
	assert.Equal(t, "Elapsed:   1h05m", l.String())
}
