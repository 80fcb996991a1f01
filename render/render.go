// Package render writes numbers and durations into fixed-capacity, NUL
// terminated character buffers for the interface board display.
//
// All functions append after the existing content of the buffer (everything
// up to the first NUL byte), never touch index len(buf)-1 with anything other
// than the terminating NUL and always leave the buffer terminated. They return
// the number of characters appended; a count lower than the field width means
// the output was truncated at the buffer boundary.
//
// Digits are extracted with subtraction and shifts only.
package render

// HourWrap is the duration, in centiseconds, at which AppendTime wraps around.
const HourWrap uint32 = 3_600_000

// radixes of the HHhMMmSS field, in centiseconds
var timeRadixes = [...]uint32{3_600_000, 360_000, 60_000, 6_000, 1_000, 100}

const (
	hourIdx   = 1
	minuteIdx = 3
)

var uintRadixes = [...]uint32{10_000, 1_000, 100, 10, 1}

type appender struct {
	buf     []byte
	idx     int
	written int
}

// begin locates the append position. It returns false when the buffer has no
// room for one more character and the terminator.
func begin(buf []byte) (*appender, bool) {
	if len(buf) < 1 {
		return nil, false
	}
	idx := 0
	for idx < len(buf) && buf[idx] != 0 {
		idx++
	}
	if idx >= len(buf)-1 {
		buf[len(buf)-1] = 0
		return nil, false
	}
	return &appender{buf: buf, idx: idx}, true
}

func (a *appender) put(c byte) bool {
	last := len(a.buf) - 1
	if a.idx >= last {
		a.buf[last] = 0
		return false
	}
	a.buf[a.idx] = c
	a.idx++
	a.written++
	return true
}

func (a *appender) finish() int {
	a.buf[a.idx] = 0
	return a.written
}

// AppendUint8 appends val as a 3 character, space padded field.
func AppendUint8(buf []byte, val uint8) int {
	a, ok := begin(buf)
	if !ok {
		return 0
	}
	hasDigit := false
	c := byte(' ')
	if val >= 100 {
		c = '0'
		for val >= 100 {
			val -= 100
			c++
		}
		hasDigit = true
	}
	if !a.put(c) {
		return a.written
	}

	c = ' '
	if val >= 10 || hasDigit {
		c = '0'
		for val >= 10 {
			val -= 10
			c++
		}
	}
	if !a.put(c) {
		return a.written
	}

	if !a.put('0' + val) {
		return a.written
	}
	return a.finish()
}

// AppendUint16 appends the lowest width decimal digits of val (width 1..5),
// right aligned and space padded. Higher digits are dropped the same way the
// LCD integer writer drops them.
func AppendUint16(buf []byte, val uint16, width int) int {
	if width < 1 {
		return 0
	}
	if width > len(uintRadixes) {
		width = len(uintRadixes)
	}
	a, ok := begin(buf)
	if !ok {
		return 0
	}
	v := uint32(val)
	first := len(uintRadixes) - width
	hasDigit := false
	for i, radix := range uintRadixes {
		c := extractDigit(&v, radix)
		if i < first {
			continue
		}
		if !hasDigit && c == '0' && i < len(uintRadixes)-1 {
			c = ' '
		} else {
			hasDigit = true
		}
		if !a.put(c) {
			return a.written
		}
	}
	return a.finish()
}

// wrapSeconds is HourWrap in seconds.
const wrapSeconds = HourWrap / 100

// Centiseconds converts whole seconds to the fixed-point unit of AppendTime.
// seconds is first reduced modulo the wrap of the time field so the product
// never overflows.
func Centiseconds(seconds uint32) uint32 {
	// wrapSeconds<<16 is the largest multiple that fits in 32 bits
	for shift := 16; shift >= 0; shift-- {
		if step := wrapSeconds << shift; seconds >= step {
			seconds -= step
		}
	}
	return seconds<<6 + seconds<<5 + seconds<<2
}

// AppendTime appends val, a duration in centiseconds, as HHhMMmSS. Values at
// or above HourWrap wrap around; there is no days field. The tens of hours are
// blank when zero, every digit from the hour digit on is always written.
func AppendTime(buf []byte, val uint32) int {
	a, ok := begin(buf)
	if !ok {
		return 0
	}
	for val >= HourWrap {
		val -= HourWrap
	}
	hasDigit := false
	for i, radix := range timeRadixes {
		c := extractDigit(&val, radix)
		if hasDigit || c != '0' || i >= hourIdx {
			hasDigit = true
		} else {
			c = ' '
		}
		if !a.put(c) {
			return a.written
		}
		if i == hourIdx && !a.put('h') {
			return a.written
		}
		if i == minuteIdx && !a.put('m') {
			return a.written
		}
	}
	return a.finish()
}

// AppendString appends s, truncating it at the buffer boundary.
func AppendString(buf []byte, s string) int {
	a, ok := begin(buf)
	if !ok {
		return 0
	}
	for i := 0; i < len(s); i++ {
		if !a.put(s[i]) {
			return a.written
		}
	}
	return a.finish()
}

// extractDigit takes one decimal digit of weight radix off *val by
// subtracting 8, 4, 2 and 1 times the radix. *val must be below 10*radix for
// the result to be a single digit.
func extractDigit(val *uint32, radix uint32) byte {
	digit := byte('0')
	threshold := radix << 3
	for bit := byte(8); bit > 0; bit >>= 1 {
		if *val >= threshold {
			*val -= threshold
			digit += bit
		}
		threshold >>= 1
	}
	return digit
}
