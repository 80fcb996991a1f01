package panel

import "github.com/mklimuk/toolpanel/render"

// durations are folded before conversion so that centiseconds fit in 32 bits
const wrapSeconds = render.HourWrap / 100

// Remaining time labels of the monitor screen.
const (
	LabelCalculating = " calc.."
	LabelUnderMinute = "  <1min"
	LabelNone        = "   none"
)

// TimeLeft appends the estimated remaining build time. elapsed is the number
// of seconds since the extruder started, 0 when it has not started yet;
// percent is the completed part of the build.
func TimeLeft(buf []byte, elapsed uint32, percent uint8, complete bool) int {
	if percent < 1 || elapsed == 0 {
		return render.AppendString(buf, LabelCalculating)
	}
	left := int64(elapsed)*100/int64(percent) - int64(elapsed)
	switch {
	case left > 0 && left < 60 && !complete:
		return render.AppendString(buf, LabelUnderMinute)
	case left <= 0 || complete:
		return render.AppendString(buf, LabelNone)
	}
	return render.AppendTime(buf, render.Centiseconds(uint32(left%int64(wrapSeconds))))
}

// Elapsed appends a duration given in seconds.
func Elapsed(buf []byte, seconds uint32) int {
	return render.AppendTime(buf, render.Centiseconds(seconds%wrapSeconds))
}

// Completed appends the build progress, e.g. " 42% ".
func Completed(buf []byte, percent uint8) int {
	n := render.AppendUint8(buf, percent)
	return n + render.AppendString(buf, "% ")
}
