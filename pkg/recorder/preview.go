package recorder

import (
	"context"
	"fmt"
	"github.com/sirupsen/logrus"
	"github.com/stydxm/usbrecord/pkg/overlay"
	"time"
)

// Preview 显示实时画面用于调整镜头位置，按 q、超时或 ctx 结束时返回。
// 读帧失败时释放设备并返回 ErrReadFrame。
func (r *Recorder) Preview(ctx context.Context, timeout time.Duration) error {
	r.mu.Lock()
	if r.source == nil {
		r.mu.Unlock()
		return ErrNotOpened
	}
	if r.recordingLocked() {
		r.mu.Unlock()
		return ErrAlreadyRecording
	}
	src, params := r.source, r.params
	prev := r.state
	r.state = StatePreview
	r.mu.Unlock()

	defer func() {
		r.mu.Lock()
		if r.state == StatePreview {
			r.state = prev
		}
		r.mu.Unlock()
	}()

	window := r.backend.NewWindow(r.opts.WindowName)
	defer func() { _ = window.Close() }()
	frame := src.NewFrame()
	defer func() { _ = frame.Close() }()

	r.notify("preview_started", map[string]any{"timeout": timeout})
	start := r.opts.Now()
	for {
		elapsed := r.opts.Now().Sub(start)
		if !src.Read(frame) {
			logrus.Errorf("Can not receive camera_id:%d frame", r.opts.Settings.Index)
			if err := r.Release(); err != nil {
				logrus.Warnf("释放摄像头失败: %v", err)
			}
			return fmt.Errorf("%w: camera_id:%d", ErrReadFrame, r.opts.Settings.Index)
		}

		lines := [4]string{
			overlay.FormatCameraID(r.opts.Settings.Index),
			overlay.FormatFrameInfo(params),
			overlay.FormatCountdown(timeout - elapsed),
			overlay.QuitHint,
		}
		for i, text := range lines {
			r.backend.PutText(frame, text, overlay.PreviewLines[i])
		}
		window.Show(frame)

		if window.WaitKey(1) == 'q' || elapsed > timeout || ctx.Err() != nil {
			break
		}
	}
	logrus.Info("Preview closed")
	r.notify("preview_finished", nil)
	return nil
}
