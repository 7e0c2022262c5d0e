package stream

/*
#cgo pkg-config: libavcodec libavutil libswscale
#include <libavcodec/avcodec.h>
#include <libavutil/opt.h>
#include <libavutil/imgutils.h>
#include <libswscale/swscale.h>
#include <stdlib.h>

static inline int get_averror_eagain() {
    return AVERROR(EAGAIN);
}

static inline int get_averror_eof() {
    return AVERROR_EOF;
}
*/
import "C"
import (
	"fmt"
	"github.com/sirupsen/logrus"
	"gocv.io/x/gocv"
	"image"
	"math"
	"unsafe"
)

// FFmpegEncoder 使用libavcodec(libx265)把BGR帧编码为HEVC
type FFmpegEncoder struct {
	config     EncoderConfig
	codec      *C.AVCodec
	codecCtx   *C.AVCodecContext
	frame      *C.AVFrame
	packet     *C.AVPacket
	swsCtx     *C.struct_SwsContext
	frameCount int64
	headers    []byte
}

func setOpt(obj unsafe.Pointer, key, value string) {
	cKey, cValue := C.CString(key), C.CString(value)
	defer C.free(unsafe.Pointer(cKey))
	defer C.free(unsafe.Pointer(cValue))
	C.av_opt_set(obj, cKey, cValue, 0)
}

func FFmpegEncoderFactory(config EncoderConfig) (*FFmpegEncoder, error) {
	if config.Width <= 0 || config.Height <= 0 {
		return nil, fmt.Errorf("无效的编码尺寸: %dx%d", config.Width, config.Height)
	}
	if config.FPS <= 0 {
		config.FPS = 30
	}
	if config.GOPSize <= 0 {
		config.GOPSize = 30
	}
	if config.Preset == "" {
		config.Preset = "medium"
	}
	if config.Tune == "" {
		config.Tune = "zerolatency"
	}
	e := &FFmpegEncoder{config: config}

	codecName := C.CString("libx265")
	defer C.free(unsafe.Pointer(codecName))
	e.codec = C.avcodec_find_encoder_by_name(codecName)
	if e.codec == nil {
		return nil, fmt.Errorf("无法找到libx265编码器")
	}

	e.codecCtx = C.avcodec_alloc_context3(e.codec)
	if e.codecCtx == nil {
		return nil, fmt.Errorf("无法分配编码器上下文")
	}

	fps := C.int(math.Round(config.FPS))
	e.codecCtx.width = C.int(config.Width)
	e.codecCtx.height = C.int(config.Height)
	e.codecCtx.time_base = C.AVRational{num: 1, den: fps}
	e.codecCtx.framerate = C.AVRational{num: fps, den: 1}
	e.codecCtx.pix_fmt = C.AV_PIX_FMT_YUV420P
	e.codecCtx.gop_size = C.int(config.GOPSize)
	e.codecCtx.max_b_frames = 0
	if config.Bitrate > 0 {
		e.codecCtx.bit_rate = C.int64_t(config.Bitrate * 1000)
	}
	setOpt(unsafe.Pointer(e.codecCtx.priv_data), "preset", config.Preset)
	setOpt(unsafe.Pointer(e.codecCtx.priv_data), "tune", config.Tune)
	e.codecCtx.flags |= C.AV_CODEC_FLAG_GLOBAL_HEADER

	if C.avcodec_open2(e.codecCtx, e.codec, nil) < 0 {
		_ = e.Close()
		return nil, fmt.Errorf("无法打开编码器")
	}

	e.frame = C.av_frame_alloc()
	if e.frame == nil {
		_ = e.Close()
		return nil, fmt.Errorf("无法分配帧")
	}
	e.frame.format = C.int(e.codecCtx.pix_fmt)
	e.frame.width = e.codecCtx.width
	e.frame.height = e.codecCtx.height
	if C.av_frame_get_buffer(e.frame, 0) < 0 {
		_ = e.Close()
		return nil, fmt.Errorf("无法分配帧缓冲区")
	}

	e.packet = C.av_packet_alloc()
	if e.packet == nil {
		_ = e.Close()
		return nil, fmt.Errorf("无法分配数据包")
	}

	// BGR24 -> YUV420P
	e.swsCtx = C.sws_getContext(
		e.codecCtx.width, e.codecCtx.height, C.AV_PIX_FMT_BGR24,
		e.codecCtx.width, e.codecCtx.height, C.AV_PIX_FMT_YUV420P,
		C.SWS_BILINEAR, nil, nil, nil,
	)
	if e.swsCtx == nil {
		_ = e.Close()
		return nil, fmt.Errorf("无法创建swscale上下文")
	}

	if config.RepeatHeaders && e.codecCtx.extradata_size > 0 {
		e.headers = C.GoBytes(unsafe.Pointer(e.codecCtx.extradata), e.codecCtx.extradata_size)
	}
	logrus.Debugf("FFmpeg编码器初始化成功: %dx%d @ %d fps, bitrate: %d kbps, preset: %s, tune: %s, 头信息 %d 字节",
		config.Width, config.Height, int(fps), config.Bitrate, config.Preset, config.Tune, len(e.headers))
	return e, nil
}

// EncodeFrame 编码单帧，编码器仍在缓冲时返回空切片
func (e *FFmpegEncoder) EncodeFrame(frame gocv.Mat) ([]byte, error) {
	if frame.Empty() {
		return nil, fmt.Errorf("空帧无法编码")
	}
	if frame.Cols() != e.config.Width || frame.Rows() != e.config.Height {
		resized := gocv.NewMat()
		defer resized.Close()
		gocv.Resize(frame, &resized, image.Pt(e.config.Width, e.config.Height), 0, 0, gocv.InterpolationLinear)
		frame = resized
	}

	if C.av_frame_make_writable(e.frame) < 0 {
		return nil, fmt.Errorf("无法使帧可写")
	}

	// 复制到C内存，避免违反cgo指针规则
	cBgrData := C.CBytes(frame.ToBytes())
	defer C.free(cBgrData)
	srcData := (**C.uint8_t)(C.malloc(C.size_t(unsafe.Sizeof(uintptr(0))) * 4))
	defer C.free(unsafe.Pointer(srcData))
	srcLinesize := (*C.int)(C.malloc(C.size_t(unsafe.Sizeof(C.int(0))) * 4))
	defer C.free(unsafe.Pointer(srcLinesize))
	*srcData = (*C.uint8_t)(cBgrData)
	*srcLinesize = C.int(e.config.Width * 3)

	C.sws_scale(e.swsCtx, srcData, srcLinesize, 0, e.codecCtx.height,
		(**C.uint8_t)(unsafe.Pointer(&e.frame.data[0])),
		(*C.int)(unsafe.Pointer(&e.frame.linesize[0])))

	e.frame.pts = C.int64_t(e.frameCount)
	e.frameCount++

	if C.avcodec_send_frame(e.codecCtx, e.frame) < 0 {
		return nil, fmt.Errorf("发送帧到编码器失败")
	}
	ret := C.avcodec_receive_packet(e.codecCtx, e.packet)
	if ret == C.get_averror_eagain() || ret == C.get_averror_eof() {
		return []byte{}, nil
	} else if ret < 0 {
		return nil, fmt.Errorf("接收数据包失败")
	}
	defer C.av_packet_unref(e.packet)

	encoded := C.GoBytes(unsafe.Pointer(e.packet.data), e.packet.size)
	if len(e.headers) > 0 && e.packet.flags&C.AV_PKT_FLAG_KEY != 0 {
		out := make([]byte, 0, len(e.headers)+len(encoded))
		out = append(out, e.headers...)
		return append(out, encoded...), nil
	}
	return encoded, nil
}

// Flush 取出编码器中剩余的数据
func (e *FFmpegEncoder) Flush() ([]byte, error) {
	var all []byte
	C.avcodec_send_frame(e.codecCtx, nil)
	for {
		ret := C.avcodec_receive_packet(e.codecCtx, e.packet)
		if ret == C.get_averror_eof() || ret == C.get_averror_eagain() {
			break
		} else if ret < 0 {
			return nil, fmt.Errorf("刷新时接收数据包失败")
		}
		all = append(all, C.GoBytes(unsafe.Pointer(e.packet.data), e.packet.size)...)
		C.av_packet_unref(e.packet)
	}
	return all, nil
}

func (e *FFmpegEncoder) Close() error {
	if e.swsCtx != nil {
		C.sws_freeContext(e.swsCtx)
		e.swsCtx = nil
	}
	if e.packet != nil {
		C.av_packet_free(&e.packet)
	}
	if e.frame != nil {
		C.av_frame_free(&e.frame)
	}
	if e.codecCtx != nil {
		C.avcodec_free_context(&e.codecCtx)
	}
	logrus.Debug("FFmpeg编码器已关闭")
	return nil
}

// GetHeaders 返回VPS/SPS/PPS头（extradata）
func (e *FFmpegEncoder) GetHeaders() ([]byte, error) {
	if e.codecCtx != nil && e.codecCtx.extradata_size > 0 {
		return C.GoBytes(unsafe.Pointer(e.codecCtx.extradata), e.codecCtx.extradata_size), nil
	}
	return []byte{}, nil
}
