package recorder

import (
	"errors"
	"fmt"
	"github.com/sirupsen/logrus"
	"github.com/stydxm/usbrecord/pkg/media"
	"github.com/stydxm/usbrecord/pkg/storage"
	"math"
	"path/filepath"
	"time"
)

// SliceMode 后处理方式
type SliceMode string

const (
	SliceFrames   SliceMode = "frames"
	SliceSegments SliceMode = "segments"
)

// SliceResult 切片输出
type SliceResult struct {
	Dir   string
	Items int
}

// Slice 对最近一次录像做后处理，输出到 <录像目录>/<录像名>/ 下。
// frames 模式逐帧导出图片，segments 模式按 segment 时长切分为多个视频。
func (r *Recorder) Slice(mode SliceMode, segment time.Duration) (SliceResult, error) {
	r.mu.Lock()
	if r.recordingLocked() {
		r.mu.Unlock()
		return SliceResult{}, ErrAlreadyRecording
	}
	dir, name, file := r.dir, r.name, r.file
	r.mu.Unlock()
	if file == "" {
		return SliceResult{}, ErrNoRecording
	}

	out := filepath.Join(dir, name)
	if err := storage.EnsureDir(out); err != nil {
		return SliceResult{}, err
	}

	src, params, err := r.backend.OpenVideo(file)
	if err != nil {
		logrus.Error("Failed to open video file.")
		return SliceResult{}, err
	}
	defer func() { _ = src.Close() }()

	var n int
	switch mode {
	case SliceFrames:
		n, err = r.sliceFrames(src, out, name)
	case SliceSegments:
		n, err = r.sliceSegments(src, params, out, name, segment)
	default:
		err = fmt.Errorf("unknown slice mode %q", mode)
	}
	if err != nil {
		logrus.Errorf("An error occurred during processing: %v", err)
		return SliceResult{Dir: out, Items: n}, err
	}

	logrus.Infof("Record has been sliced: %s", out)
	r.notify("record_sliced", map[string]any{"dir": out, "items": n, "mode": string(mode)})
	return SliceResult{Dir: out, Items: n}, nil
}

func (r *Recorder) sliceFrames(src media.Source, out, name string) (int, error) {
	frame := src.NewFrame()
	defer func() { _ = frame.Close() }()

	count := 0
	for src.Read(frame) {
		path := filepath.Join(out, fmt.Sprintf("%s_frame_count_%d%s", name, count, r.opts.ImageExtension))
		if err := r.backend.WriteImage(path, frame); err != nil {
			return count, err
		}
		count++
	}
	return count, nil
}

func (r *Recorder) sliceSegments(src media.Source, params media.Params, out, name string, segment time.Duration) (int, error) {
	if segment <= 0 {
		return 0, fmt.Errorf("invalid segment length %s", segment)
	}
	fps := params.FPS
	if fps <= 0 {
		fps = float64(r.opts.Settings.FPS)
	}
	perSegment := max(1, int(math.Round(segment.Seconds()*fps)))
	params.FPS = fps

	frame := src.NewFrame()
	defer func() { _ = frame.Close() }()

	var (
		writer  media.Writer
		parts   int
		written int
		err     error
	)
	for src.Read(frame) {
		if writer == nil {
			path := filepath.Join(out, fmt.Sprintf("%s_part_%d%s", name, parts, r.opts.Extension))
			if writer, err = r.backend.NewWriter(path, r.opts.Codec, params); err != nil {
				return parts, err
			}
			parts++
		}
		if err = writer.Write(frame); err != nil {
			return parts, errors.Join(err, writer.Close())
		}
		written++
		if written == perSegment {
			written = 0
			if err = writer.Close(); err != nil {
				return parts, err
			}
			writer = nil
		}
	}
	if writer != nil {
		if err = writer.Close(); err != nil {
			return parts, err
		}
	}
	return parts, nil
}
