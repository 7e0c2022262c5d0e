// Package media 定义采集后端的抽象接口，录像逻辑只依赖这些接口，
// gocv 的具体实现位于 pkg/stream。
package media

import (
	"fmt"
	"image"
	"image/color"
	"time"
)

// Frame 一帧图像，由创建它的后端负责解释
type Frame interface {
	Close() error
}

// Source 帧来源：摄像头或视频文件
type Source interface {
	NewFrame() Frame
	Read(f Frame) bool
	Close() error
}

// Writer 帧输出：视频文件或转发通道
type Writer interface {
	Write(f Frame) error
	Close() error
}

// Window 预览窗口
type Window interface {
	Show(f Frame)
	WaitKey(delay int) int
	Close() error
}

// Params 设备实际生效的参数
type Params struct {
	Width  int
	Height int
	FPS    float64
}

func (p Params) String() string {
	return fmt.Sprintf("%dx%d@%dfps", p.Width, p.Height, int(p.FPS))
}

// Settings 打开摄像头时请求的参数
type Settings struct {
	Index     int
	Width     int
	Height    int
	FPS       int
	Autofocus bool
	WarmUp    time.Duration // 打开设备后的延时保护
}

// TextStyle 叠加文字的样式
type TextStyle struct {
	Origin      image.Point
	Scale       float64
	Color       color.RGBA
	Thickness   int
	Antialiased bool
}

// Backend 多媒体库的全部能力
type Backend interface {
	OpenCamera(s Settings) (Source, Params, error)
	OpenVideo(path string) (Source, Params, error)
	NewWriter(path, codec string, p Params) (Writer, error)
	WriteImage(path string, f Frame) error
	PutText(f Frame, text string, style TextStyle)
	NewWindow(name string) Window
}
