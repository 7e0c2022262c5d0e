package recorder

import (
	"context"
	"errors"
	"fmt"
	"github.com/sirupsen/logrus"
	"github.com/stydxm/usbrecord/pkg/media"
	"github.com/stydxm/usbrecord/pkg/overlay"
	"github.com/stydxm/usbrecord/pkg/storage"
	"path/filepath"
	"time"
)

// Start 创建录像文件并启动录像线程后立即返回。timeout <= 0 表示只由 Stop 或 ctx 结束。
// 时间戳标志在这里同步复位，之后调用 StartTimeMark 不会被录像线程覆盖。
func (r *Recorder) Start(ctx context.Context, dir, caseName string, count int, timeout time.Duration) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.recordingLocked() {
		return ErrAlreadyRecording
	}
	// 上一次录像线程已退出但还没有被 Stop/Wait 回收
	if r.done != nil {
		if err := r.finishLocked(); err != nil {
			return fmt.Errorf("上一次录像失败: %w", err)
		}
	}
	r.marking.Store(false)
	r.markReset.Store(false)

	if r.source == nil {
		logrus.Warn("Camera is not opened. Trying to open it...")
		if err := r.openLocked(); err != nil {
			return err
		}
	}

	now := r.opts.Now()
	name := storage.RecordName(caseName, now, count)
	file := filepath.Join(dir, name+r.opts.Extension)
	writer, err := r.backend.NewWriter(file, r.opts.Codec, r.params)
	if err != nil {
		return fmt.Errorf("error capturing and saving image: %w", err)
	}

	r.dir, r.name, r.file = dir, name, file
	r.startedAt, r.stoppedAt = now, time.Time{}
	r.stop = make(chan struct{})
	r.done = make(chan struct{})
	r.err = nil
	r.frames.Store(0)
	r.state = StateRecording

	go r.loop(ctx, r.source, writer, timeout, r.stop, r.done)
	logrus.Infof("Thread start: ID=%s, Target=record %s", r.opts.Session, name)
	r.notify("record_started", map[string]any{"file": file, "timeout": timeout})
	return nil
}

func (r *Recorder) loop(ctx context.Context, src media.Source, writer media.Writer, timeout time.Duration,
	stop <-chan struct{}, done chan<- struct{}) {
	var loopErr error
	defer func() {
		if err := writer.Close(); err != nil {
			loopErr = errors.Join(loopErr, fmt.Errorf("关闭录像文件失败: %w", err))
		}
		r.mu.Lock()
		r.err = loopErr
		r.stoppedAt = r.opts.Now()
		if r.state == StateRecording {
			r.state = StateStopped
		}
		r.mu.Unlock()
		close(done)
	}()

	frame := src.NewFrame()
	defer func() { _ = frame.Close() }()

	logrus.Info("Start recording")
	start := r.opts.Now()
	var markStart time.Time

	finished := func(now time.Time) bool {
		select {
		case <-stop:
			return true
		case <-ctx.Done():
			return true
		default:
		}
		return timeout > 0 && now.Sub(start) >= timeout
	}

	for {
		if !src.Read(frame) {
			logrus.Warn("Failed to capture image from camera.")
			if finished(r.opts.Now()) {
				break
			}
			continue
		}

		now := r.opts.Now()
		if r.marking.Load() {
			if r.markReset.Swap(false) || markStart.IsZero() {
				markStart = now
			}
			r.backend.PutText(frame, overlay.FormatElapsed(now.Sub(markStart).Milliseconds()), overlay.Timestamp)
		}

		if err := writer.Write(frame); err != nil {
			loopErr = fmt.Errorf("写入录像帧失败: %w", err)
			logrus.Error(loopErr)
			break
		}
		for _, tap := range r.opts.Taps {
			if err := tap.Write(frame); err != nil {
				logrus.Debugf("转发帧失败: %v", err)
			}
		}
		r.frames.Add(1)

		if finished(now) {
			break
		}
	}

	logrus.Info("Stop record")
	logrus.Infof("Video saved as: %s", filepath.Base(r.fileName()))
}

func (r *Recorder) fileName() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.file
}

// StartTimeMark 打开时间戳叠加，从下一帧开始以 00:00:00.000 计时
func (r *Recorder) StartTimeMark() {
	r.markReset.Store(true)
	r.marking.Store(true)
	logrus.Info("Time mark enabled")
	r.notify("time_mark_started", nil)
}

// Stop 通知录像线程停止并等待其退出，返回录像线程的错误
func (r *Recorder) Stop() error {
	r.mu.Lock()
	if r.done == nil {
		r.mu.Unlock()
		return ErrNoRecording
	}
	select {
	case <-r.stop:
	default:
		close(r.stop)
	}
	r.mu.Unlock()

	return r.join()
}

// Wait 不发送停止信号，只等待录像线程结束（例如超时）
func (r *Recorder) Wait() error {
	r.mu.Lock()
	if r.done == nil {
		r.mu.Unlock()
		return ErrNoRecording
	}
	r.mu.Unlock()
	return r.join()
}

func (r *Recorder) join() error {
	r.mu.Lock()
	done := r.done
	r.mu.Unlock()
	if done == nil {
		return ErrNoRecording
	}
	<-done

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.done != done {
		// 另一个调用者已经完成 join
		return r.err
	}
	return r.finishLocked()
}

// finishLocked 回收已退出的录像线程，调用前 r.done 必须已关闭
func (r *Recorder) finishLocked() error {
	r.done = nil
	logrus.Infof("Thread closed: ID=%s, Target=record %s", r.opts.Session, r.name)
	r.notify("record_stopped", map[string]any{
		"file":    r.file,
		"frames":  r.frames.Load(),
		"elapsed": r.stoppedAt.Sub(r.startedAt),
		"error":   r.err,
	})
	return r.err
}
