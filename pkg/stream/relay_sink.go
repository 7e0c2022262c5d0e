package stream

import (
	"errors"
	"fmt"
	"github.com/sirupsen/logrus"
	"github.com/stydxm/usbrecord/pkg/media"
	"github.com/stydxm/usbrecord/pkg/relay"
	"gocv.io/x/gocv"
)

// NewRelayTap 按 codec 选择转发方式，未知值按 JPEG 处理
func NewRelayTap(codec relay.Codec, sender *relay.Sender, fps float64) media.Writer {
	if codec == relay.CodecHEVC {
		return NewHEVCRelay(sender, fps)
	}
	return NewJPEGRelay(sender)
}

// JPEGRelay 把每帧编码为 JPEG 后通过 UDP 转发
type JPEGRelay struct {
	sender *relay.Sender
}

func NewJPEGRelay(sender *relay.Sender) *JPEGRelay {
	return &JPEGRelay{sender: sender}
}

func (r *JPEGRelay) Write(f media.Frame) error {
	return sendJPEG(r.sender, mat(f))
}

func (r *JPEGRelay) Close() error {
	return r.sender.Close()
}

func sendJPEG(sender *relay.Sender, m gocv.Mat) error {
	buf, err := gocv.IMEncode(gocv.JPEGFileExt, m)
	if err != nil {
		return fmt.Errorf("JPEG 编码失败: %w", err)
	}
	defer buf.Close()
	return sender.Send(buf.GetBytes())
}

// HEVCRelay 用 libx265 编码后转发。编码器在第一帧到来时按帧尺寸创建，
// 创建失败时退回 JPEG。
type HEVCRelay struct {
	sender   *relay.Sender
	fps      float64
	encoder  Encoder
	fallback bool
}

func NewHEVCRelay(sender *relay.Sender, fps float64) *HEVCRelay {
	return &HEVCRelay{sender: sender, fps: fps}
}

func (r *HEVCRelay) Write(f media.Frame) error {
	m := mat(f)
	if r.fallback {
		return sendJPEG(r.sender, m)
	}
	if r.encoder == nil {
		encoder, err := FFmpegEncoderFactory(RelayEncoderConfig(m.Cols(), m.Rows(), r.fps))
		if err != nil {
			logrus.Warnf("无法创建编码器，改用 JPEG 转发: %v", err)
			r.fallback = true
			return sendJPEG(r.sender, m)
		}
		r.encoder = encoder
	}

	encodedData, err := r.encoder.EncodeFrame(m)
	if err != nil {
		return fmt.Errorf("编码失败: %w", err)
	}
	// 编码器缓冲中
	if len(encodedData) == 0 {
		return nil
	}
	return r.sender.Send(encodedData)
}

// Close 刷新编码器缓冲区并发送剩余数据
func (r *HEVCRelay) Close() error {
	var errs []error
	if r.encoder != nil {
		logrus.Debug("刷新编码器缓冲区")
		flushed, err := r.encoder.Flush()
		if err != nil {
			errs = append(errs, err)
		} else if len(flushed) > 0 {
			errs = append(errs, r.sender.Send(flushed))
			logrus.Debugf("发送刷新数据: %d 字节", len(flushed))
		}
		errs = append(errs, r.encoder.Close())
	}
	errs = append(errs, r.sender.Close())
	return errors.Join(errs...)
}
