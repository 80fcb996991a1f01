package render

// LineWidth is the number of columns of the character display.
const LineWidth = 16

// Line holds one display line plus its terminator. The zero value is an empty line.
type Line [LineWidth + 1]byte

func (l *Line) Reset() {
	l[0] = 0
}

func (l *Line) AppendUint8(val uint8) int {
	return AppendUint8(l[:], val)
}

func (l *Line) AppendUint16(val uint16, width int) int {
	return AppendUint16(l[:], val, width)
}

func (l *Line) AppendTime(val uint32) int {
	return AppendTime(l[:], val)
}

func (l *Line) AppendString(s string) int {
	return AppendString(l[:], s)
}

// Len returns the number of characters before the terminator.
func (l *Line) Len() int {
	n := 0
	for n < len(l) && l[n] != 0 {
		n++
	}
	return n
}

func (l *Line) String() string {
	return string(l[:l.Len()])
}
