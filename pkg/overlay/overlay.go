package overlay

import (
	"fmt"
	"github.com/stydxm/usbrecord/pkg/media"
	"image"
	"image/color"
	"time"
)

var (
	white = color.RGBA{R: 255, G: 255, B: 255, A: 0}
	red   = color.RGBA{R: 255, G: 0, B: 0, A: 0}
)

// Timestamp 录像时间戳的位置固定在左上角
var Timestamp = media.TextStyle{
	Origin:    image.Pt(10, 30),
	Scale:     1,
	Color:     white,
	Thickness: 2,
}

// PreviewLines 预览画面上四行提示文字的样式
var PreviewLines = [4]media.TextStyle{
	{Origin: image.Pt(25, 40), Scale: 1, Color: red, Thickness: 2, Antialiased: true},
	{Origin: image.Pt(25, 80), Scale: 0.8, Color: red, Thickness: 1, Antialiased: true},
	{Origin: image.Pt(25, 120), Scale: 0.8, Color: red, Thickness: 1, Antialiased: true},
	{Origin: image.Pt(25, 160), Scale: 0.8, Color: red, Thickness: 1, Antialiased: true},
}

// QuitHint 预览窗口的退出提示
const QuitHint = `Enter "q" to close windows`

// FormatElapsed 把毫秒数格式化为 HH:MM:SS.mmm
func FormatElapsed(ms int64) string {
	if ms < 0 {
		ms = 0
	}
	seconds, millis := ms/1000, ms%1000
	hours, rest := seconds/3600, seconds%3600
	minutes, seconds := rest/60, rest%60
	return fmt.Sprintf("%02d:%02d:%02d.%03d", hours, minutes, seconds, millis)
}

// FormatCountdown 预览倒计时，60 进制，不足 0 按 0 计
func FormatCountdown(remaining time.Duration) string {
	secs := int64(remaining / time.Second)
	if secs < 0 {
		secs = 0
	}
	return fmt.Sprintf("Countdown Clock: %02d:%02d", secs/60, secs%60)
}

func FormatCameraID(index int) string {
	return fmt.Sprintf("Camera ID: %d", index)
}

func FormatFrameInfo(p media.Params) string {
	return "Frame Info: " + p.String()
}
