package config

import (
	"errors"
	"fmt"
	"github.com/stydxm/usbrecord/pkg/recorder"
	"github.com/stydxm/usbrecord/pkg/relay"
	"gopkg.in/yaml.v3"
	"os"
	"strconv"
	"time"
)

type Config struct {
	Log     LogConfig     `yaml:"log"`
	Output  OutputConfig  `yaml:"output"`
	Camera  CameraConfig  `yaml:"camera"`
	Preview PreviewConfig `yaml:"preview"`
	Record  RecordConfig  `yaml:"record"`
	Slice   SliceConfig   `yaml:"slice"`
	Relay   RelayConfig   `yaml:"relay"`
	MQTT    MQTTConfig    `yaml:"mqtt"`
}

type LogConfig struct {
	Level string `yaml:"level"`
}

type OutputConfig struct {
	Root    string `yaml:"root"` // 为空时使用当前工作目录
	MainDir string `yaml:"main_dir"`
}

type CameraConfig struct {
	Index     int           `yaml:"index"` // 列表中的位置，-1 表示交互选择
	Width     int           `yaml:"width"`
	Height    int           `yaml:"height"`
	FPS       int           `yaml:"fps"`
	Autofocus bool          `yaml:"autofocus"`
	WarmUp    time.Duration `yaml:"warm_up"`
}

type PreviewConfig struct {
	Enabled bool          `yaml:"enabled"`
	Timeout time.Duration `yaml:"timeout"`
	Window  string        `yaml:"window"`
}

type RecordConfig struct {
	CaseName  string        `yaml:"case_name"`
	Count     int           `yaml:"count"`
	Timeout   time.Duration `yaml:"timeout"`    // 录像线程的最长录制时间
	MarkDelay time.Duration `yaml:"mark_delay"` // 开始录像到打开时间戳的间隔
	Duration  time.Duration `yaml:"duration"`   // 打开时间戳到停止录像的间隔
	Settle    time.Duration `yaml:"settle"`     // 各步骤之间的停顿
	Codec     string        `yaml:"codec"`
	Extension string        `yaml:"extension"`
}

type SliceConfig struct {
	Enabled        bool               `yaml:"enabled"`
	Mode           recorder.SliceMode `yaml:"mode"`
	Segment        time.Duration      `yaml:"segment"`
	ImageExtension string             `yaml:"image_extension"`
}

type RelayConfig struct {
	Enabled    bool        `yaml:"enabled"`
	Address    string      `yaml:"address"`
	PacketSize int         `yaml:"packet_size"`
	Codec      relay.Codec `yaml:"codec"` // hevc 或 jpeg
}

type MQTTConfig struct {
	Enabled        bool          `yaml:"enabled"`
	Address        string        `yaml:"address"` // 为空时不监听 TCP，只使用内联客户端
	TopicPrefix    string        `yaml:"topic_prefix"`
	StatusInterval time.Duration `yaml:"status_interval"`
}

// Default 与原始示例脚本一致的默认值
func Default() *Config {
	return &Config{
		Log:    LogConfig{Level: "info"},
		Output: OutputConfig{MainDir: "Videos"},
		Camera: CameraConfig{
			Index:     -1,
			Width:     1280,
			Height:    720,
			FPS:       60,
			Autofocus: true,
			WarmUp:    time.Second,
		},
		Preview: PreviewConfig{Enabled: true, Timeout: 60 * time.Second, Window: "frame"},
		Record: RecordConfig{
			CaseName:  "直播切台",
			Count:     1,
			Timeout:   60 * time.Second,
			MarkDelay: 3 * time.Second,
			Duration:  10 * time.Second,
			Settle:    time.Second,
			Codec:     "XVID",
			Extension: ".avi",
		},
		Slice: SliceConfig{
			Enabled:        true,
			Mode:           recorder.SliceFrames,
			Segment:        2 * time.Second,
			ImageExtension: ".jpg",
		},
		Relay: RelayConfig{Address: "127.0.0.1:3334", PacketSize: 1000, Codec: relay.CodecHEVC},
		MQTT: MQTTConfig{
			Address:        ":3333",
			TopicPrefix:    "usbrecord",
			StatusInterval: 200 * time.Millisecond,
		},
	}
}

// Load 读取配置：默认值 <- YAML 文件 <- 环境变量。path 为空时跳过文件。
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("读取配置文件失败: %w", err)
		}
		if err := yaml.Unmarshal(b, cfg); err != nil {
			return nil, fmt.Errorf("解析配置文件失败: %w", err)
		}
	}

	cfg.Log.Level = getEnvOrDefault("USBRECORD_LOG_LEVEL", cfg.Log.Level)
	cfg.Output.Root = getEnvOrDefault("USBRECORD_OUTPUT_ROOT", cfg.Output.Root)
	cfg.Camera.Index = getEnvAsIntOrDefault("USBRECORD_CAMERA_INDEX", cfg.Camera.Index)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("配置校验失败: %w", err)
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	var errs []error
	if c.Camera.Width <= 0 || c.Camera.Height <= 0 {
		errs = append(errs, fmt.Errorf("无效的分辨率: %dx%d", c.Camera.Width, c.Camera.Height))
	}
	if c.Camera.FPS <= 0 {
		errs = append(errs, fmt.Errorf("无效的帧率: %d", c.Camera.FPS))
	}
	if c.Output.MainDir == "" {
		errs = append(errs, errors.New("输出目录名为空"))
	}
	if len(c.Record.Codec) != 4 {
		errs = append(errs, fmt.Errorf("编码器 FOURCC 必须为 4 个字符: %q", c.Record.Codec))
	}
	for name, d := range map[string]time.Duration{
		"camera.warm_up":    c.Camera.WarmUp,
		"preview.timeout":   c.Preview.Timeout,
		"record.timeout":    c.Record.Timeout,
		"record.mark_delay": c.Record.MarkDelay,
		"record.duration":   c.Record.Duration,
		"record.settle":     c.Record.Settle,
	} {
		if d < 0 {
			errs = append(errs, fmt.Errorf("%s 不能为负数: %s", name, d))
		}
	}
	switch c.Slice.Mode {
	case recorder.SliceFrames:
	case recorder.SliceSegments:
		if c.Slice.Segment <= 0 {
			errs = append(errs, fmt.Errorf("无效的切片时长: %s", c.Slice.Segment))
		}
	default:
		errs = append(errs, fmt.Errorf("未知的切片模式: %q", c.Slice.Mode))
	}
	if c.Relay.Enabled && c.Relay.PacketSize <= 0 {
		errs = append(errs, fmt.Errorf("无效的 UDP 分片大小: %d", c.Relay.PacketSize))
	}
	switch c.Relay.Codec {
	case relay.CodecHEVC, relay.CodecJPEG:
	default:
		errs = append(errs, fmt.Errorf("未知的转发编码: %q", c.Relay.Codec))
	}
	if c.MQTT.Enabled && c.MQTT.TopicPrefix == "" {
		errs = append(errs, errors.New("MQTT 主题前缀为空"))
	}
	return errors.Join(errs...)
}

// getEnvOrDefault 环境变量不存在时返回默认值
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}
