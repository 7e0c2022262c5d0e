// Package stream 是 media.Backend 的 gocv 实现
package stream

import (
	"fmt"
	"github.com/sirupsen/logrus"
	"github.com/stydxm/usbrecord/pkg/media"
	"gocv.io/x/gocv"
	"time"
)

// Frame 包装 gocv.Mat
type Frame struct {
	Mat gocv.Mat
}

func (f *Frame) Close() error {
	return f.Mat.Close()
}

func mat(f media.Frame) gocv.Mat {
	return f.(*Frame).Mat
}

// Capture 包装 gocv.VideoCapture
type Capture struct {
	vc *gocv.VideoCapture
}

func (c *Capture) NewFrame() media.Frame {
	return &Frame{Mat: gocv.NewMat()}
}

func (c *Capture) Read(f media.Frame) bool {
	m := f.(*Frame)
	if ok := c.vc.Read(&m.Mat); !ok {
		return false
	}
	return !m.Mat.Empty()
}

func (c *Capture) Close() error {
	return c.vc.Close()
}

// GetOpenCVCaptureParam 读取采集设备实际生效的参数
func GetOpenCVCaptureParam(capture *gocv.VideoCapture) media.Params {
	return media.Params{
		Width:  int(capture.Get(gocv.VideoCaptureFrameWidth)),
		Height: int(capture.Get(gocv.VideoCaptureFrameHeight)),
		FPS:    capture.Get(gocv.VideoCaptureFPS),
	}
}

// Backend gocv 后端，无状态
type Backend struct{}

func NewBackend() *Backend {
	return &Backend{}
}

func (b *Backend) OpenCamera(s media.Settings) (media.Source, media.Params, error) {
	vc, err := gocv.OpenVideoCapture(s.Index)
	if err != nil {
		return nil, media.Params{}, fmt.Errorf("无法打开摄像头 %d: %w", s.Index, err)
	}
	if !vc.IsOpened() {
		_ = vc.Close()
		if vc, err = gocv.VideoCaptureDevice(s.Index); err != nil {
			return nil, media.Params{}, fmt.Errorf("无法打开摄像头 %d: %w", s.Index, err)
		}
	}
	if !vc.IsOpened() {
		_ = vc.Close()
		return nil, media.Params{}, fmt.Errorf("摄像头 %d 未打开", s.Index)
	}

	// 增加延时保护
	time.Sleep(s.WarmUp)

	vc.Set(gocv.VideoCaptureFrameWidth, float64(s.Width))
	vc.Set(gocv.VideoCaptureFrameHeight, float64(s.Height))
	vc.Set(gocv.VideoCaptureFPS, float64(s.FPS))
	if s.Autofocus {
		vc.Set(gocv.VideoCaptureAutoFocus, 1)
	}
	p := GetOpenCVCaptureParam(vc)
	logrus.Debugf("请求参数 %dx%d@%d, 实际 %s", s.Width, s.Height, s.FPS, p)
	return &Capture{vc: vc}, p, nil
}

func (b *Backend) OpenVideo(path string) (media.Source, media.Params, error) {
	vc, err := gocv.VideoCaptureFile(path)
	if err != nil {
		return nil, media.Params{}, fmt.Errorf("unable to open video file: %w", err)
	}
	if !vc.IsOpened() {
		_ = vc.Close()
		return nil, media.Params{}, fmt.Errorf("failed to open video file: %s", path)
	}
	return &Capture{vc: vc}, GetOpenCVCaptureParam(vc), nil
}

// Writer 包装 gocv.VideoWriter
type Writer struct {
	vw *gocv.VideoWriter
}

func (w *Writer) Write(f media.Frame) error {
	return w.vw.Write(mat(f))
}

func (w *Writer) Close() error {
	return w.vw.Close()
}

func (b *Backend) NewWriter(path, codec string, p media.Params) (media.Writer, error) {
	vw, err := gocv.VideoWriterFile(path, codec, p.FPS, p.Width, p.Height, true)
	if err != nil {
		return nil, fmt.Errorf("创建视频文件失败 %s: %w", path, err)
	}
	if !vw.IsOpened() {
		_ = vw.Close()
		return nil, fmt.Errorf("视频文件未打开 %s (codec %s)", path, codec)
	}
	return &Writer{vw: vw}, nil
}

func (b *Backend) WriteImage(path string, f media.Frame) error {
	if ok := gocv.IMWrite(path, mat(f)); !ok {
		return fmt.Errorf("写入图片失败: %s", path)
	}
	return nil
}

func (b *Backend) PutText(f media.Frame, text string, s media.TextStyle) {
	m := f.(*Frame)
	line := gocv.Line8
	if s.Antialiased {
		line = gocv.LineAA
	}
	gocv.PutTextWithParams(&m.Mat, text, s.Origin, gocv.FontHersheySimplex, s.Scale, s.Color, s.Thickness, line, false)
}

// Window 包装 gocv.Window
type Window struct {
	w *gocv.Window
}

func (w *Window) Show(f media.Frame) {
	w.w.IMShow(mat(f))
}

func (w *Window) WaitKey(delay int) int {
	return w.w.WaitKey(delay)
}

func (w *Window) Close() error {
	err := w.w.Close()
	gocv.WaitKey(1)
	return err
}

func (b *Backend) NewWindow(name string) media.Window {
	return &Window{w: gocv.NewWindow(name)}
}
