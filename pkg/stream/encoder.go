package stream

import "gocv.io/x/gocv"

// EncoderConfig 编码器配置
type EncoderConfig struct {
	Width         int
	Height        int
	FPS           float64
	Bitrate       int    // kbps
	Preset        string // https://trac.ffmpeg.org/wiki/Encode/H.265#ConstantRateFactorCRF
	Tune          string // https://trac.ffmpeg.org/wiki/Encode/H.265#ConstantRateFactorCRF
	RepeatHeaders bool   // 是否在关键帧前重复发送VPS/SPS/PPS头
	GOPSize       int    // 关键帧间隔，<= 0 时为 30
}

// RelayEncoderConfig 实时转发使用的编码参数，分辨率取自第一帧
func RelayEncoderConfig(width, height int, fps float64) EncoderConfig {
	return EncoderConfig{
		Width:         width,
		Height:        height,
		FPS:           fps,
		Bitrate:       2000,
		Preset:        "veryfast",
		Tune:          "zerolatency",
		RepeatHeaders: true,
	}
}

type Encoder interface {
	EncodeFrame(frame gocv.Mat) ([]byte, error)
	Flush() ([]byte, error)
	Close() error
	GetHeaders() ([]byte, error)
}
