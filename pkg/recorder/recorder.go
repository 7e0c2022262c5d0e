// Package recorder 实现摄像头录像流程：打开设备、预览、后台录像、时间戳叠加、
// 停止、切片与释放。所有多媒体操作通过 media.Backend 完成。
//
// 设备句柄同一时刻只允许一个使用者：录像线程运行期间，预览与切片都会被拒绝。
package recorder

import (
	"errors"
	"fmt"
	"github.com/sirupsen/logrus"
	"github.com/stydxm/usbrecord/pkg/media"
	"sync"
	"sync/atomic"
	"time"
)

var (
	ErrNotOpened        = errors.New("camera is not opened")
	ErrAlreadyRecording = errors.New("recording is in progress")
	ErrNoRecording      = errors.New("no recording")
	ErrReadFrame        = errors.New("can not receive camera frame")
)

// State 录像器所处阶段
type State string

const (
	StateIdle      State = "idle"
	StateOpened    State = "opened"
	StatePreview   State = "preview"
	StateRecording State = "recording"
	StateStopped   State = "stopped"
	StateReleased  State = "released"
)

// Notifier 接收生命周期事件
type Notifier interface {
	Notify(event string, fields map[string]any)
}

type Options struct {
	Settings       media.Settings
	Codec          string // FOURCC，默认 XVID
	Extension      string // 录像文件扩展名，默认 .avi
	ImageExtension string // 切片图片扩展名，默认 .jpg
	WindowName     string
	Session        string // 录像线程标识，用于日志
	Taps           []media.Writer
	Notifier       Notifier
	Now            func() time.Time
}

type Recorder struct {
	backend media.Backend
	opts    Options

	mu     sync.Mutex
	source media.Source
	params media.Params
	state  State

	// 最近一次录像
	dir       string
	name      string
	file      string
	startedAt time.Time
	stoppedAt time.Time
	stop      chan struct{}
	done      chan struct{}
	err       error

	marking   atomic.Bool // 是否叠加时间戳
	markReset atomic.Bool // 下一帧重新计时
	frames    atomic.Int64
}

func New(backend media.Backend, opts Options) *Recorder {
	if opts.Codec == "" {
		opts.Codec = "XVID"
	}
	if opts.Extension == "" {
		opts.Extension = ".avi"
	}
	if opts.ImageExtension == "" {
		opts.ImageExtension = ".jpg"
	}
	if opts.WindowName == "" {
		opts.WindowName = "frame"
	}
	if opts.Session == "" {
		opts.Session = "record"
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Recorder{backend: backend, opts: opts, state: StateIdle}
}

// Open 打开摄像头并设置分辨率、帧率；已打开时直接返回
func (r *Recorder) Open() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.openLocked()
}

func (r *Recorder) openLocked() error {
	if r.source != nil {
		return nil
	}
	src, params, err := r.backend.OpenCamera(r.opts.Settings)
	if err != nil {
		logrus.Errorf("Failed to open the camera: %v", err)
		return err
	}
	r.source = src
	r.params = params
	r.state = StateOpened
	logrus.Infof("Current Camera with configuration: index: %d, resolution: %dx%d, frame rate: %dfps",
		r.opts.Settings.Index, params.Width, params.Height, int(params.FPS))
	r.notify("camera_opened", map[string]any{
		"index":  r.opts.Settings.Index,
		"width":  params.Width,
		"height": params.Height,
		"fps":    params.FPS,
	})
	return nil
}

// Params 设备实际参数，未打开时为零值
func (r *Recorder) Params() media.Params {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.params
}

func (r *Recorder) recordingLocked() bool {
	if r.done == nil {
		return false
	}
	select {
	case <-r.done:
		return false
	default:
		return true
	}
}

// Release 释放摄像头；录像仍在进行时先停止。可重复调用。
func (r *Recorder) Release() error {
	if err := r.Stop(); err != nil && !errors.Is(err, ErrNoRecording) {
		logrus.Warnf("释放前停止录像出错: %v", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.source == nil {
		return nil
	}
	err := r.source.Close()
	r.source = nil
	r.state = StateReleased
	logrus.Info("Camera resources have been released.")
	r.notify("camera_released", nil)
	return err
}

// Opened 设备是否处于打开状态
func (r *Recorder) Opened() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.source != nil
}

func (r *Recorder) notify(event string, fields map[string]any) {
	if r.opts.Notifier != nil {
		r.opts.Notifier.Notify(event, fields)
	}
}

func (r *Recorder) String() string {
	return fmt.Sprintf("recorder(camera=%d, state=%s)", r.opts.Settings.Index, r.State())
}
