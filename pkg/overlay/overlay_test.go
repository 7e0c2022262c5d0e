package overlay

import (
	"github.com/stretchr/testify/assert"
	"github.com/stydxm/usbrecord/pkg/media"
	"testing"
	"time"
)

func TestFormatElapsed(t *testing.T) {
	cases := []struct {
		ms   int64
		want string
	}{
		{0, "00:00:00.000"},
		{999, "00:00:00.999"},
		{1000, "00:00:01.000"},
		{61_005, "00:01:01.005"},
		{3_600_000, "01:00:00.000"},
		{3_723_456, "01:02:03.456"},
		{360_000_000, "100:00:00.000"},
		{-5, "00:00:00.000"},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, FormatElapsed(c.ms), "ms=%d", c.ms)
	}
}

func TestFormatCountdown(t *testing.T) {
	assert.Equal(t, "Countdown Clock: 01:00", FormatCountdown(60*time.Second))
	assert.Equal(t, "Countdown Clock: 00:59", FormatCountdown(59900*time.Millisecond))
	assert.Equal(t, "Countdown Clock: 00:00", FormatCountdown(-time.Second))
	assert.Equal(t, "Countdown Clock: 90:00", FormatCountdown(90*time.Minute))
}

func TestFormatInfoLines(t *testing.T) {
	assert.Equal(t, "Camera ID: 2", FormatCameraID(2))
	assert.Equal(t, "Frame Info: 1280x720@60fps",
		FormatFrameInfo(media.Params{Width: 1280, Height: 720, FPS: 60}))
}

func TestStylesLayout(t *testing.T) {
	assert.Equal(t, 10, Timestamp.Origin.X)
	assert.Equal(t, 30, Timestamp.Origin.Y)
	for i, s := range PreviewLines {
		assert.Equal(t, 40*(i+1), s.Origin.Y)
		assert.True(t, s.Antialiased)
	}
}
