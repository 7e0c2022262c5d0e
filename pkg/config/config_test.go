package config

import (
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stydxm/usbrecord/pkg/recorder"
	"github.com/stydxm/usbrecord/pkg/relay"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, -1, cfg.Camera.Index)
	assert.Equal(t, 1280, cfg.Camera.Width)
	assert.Equal(t, 720, cfg.Camera.Height)
	assert.Equal(t, 60, cfg.Camera.FPS)
	assert.Equal(t, "Videos", cfg.Output.MainDir)
	assert.Equal(t, 60*time.Second, cfg.Preview.Timeout)
	assert.Equal(t, 60*time.Second, cfg.Record.Timeout)
	assert.Equal(t, 3*time.Second, cfg.Record.MarkDelay)
	assert.Equal(t, 10*time.Second, cfg.Record.Duration)
	assert.Equal(t, "XVID", cfg.Record.Codec)
	assert.Equal(t, ".avi", cfg.Record.Extension)
	assert.Equal(t, recorder.SliceFrames, cfg.Slice.Mode)
	assert.Equal(t, relay.CodecHEVC, cfg.Relay.Codec)
	assert.False(t, cfg.Relay.Enabled)
	assert.False(t, cfg.MQTT.Enabled)
}

func TestLoadYAMLOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "usbrecord.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
camera:
  index: 1
  width: 1920
  height: 1080
  fps: 30
record:
  case_name: smoke
  duration: 1500ms
slice:
  mode: segments
  segment: 5s
relay:
  codec: jpeg
mqtt:
  enabled: true
  address: ""
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 1, cfg.Camera.Index)
	assert.Equal(t, 1920, cfg.Camera.Width)
	assert.Equal(t, 30, cfg.Camera.FPS)
	assert.Equal(t, "smoke", cfg.Record.CaseName)
	assert.Equal(t, 1500*time.Millisecond, cfg.Record.Duration)
	assert.Equal(t, recorder.SliceSegments, cfg.Slice.Mode)
	assert.Equal(t, relay.CodecJPEG, cfg.Relay.Codec)
	assert.Equal(t, 5*time.Second, cfg.Slice.Segment)
	assert.True(t, cfg.MQTT.Enabled)
	assert.Empty(t, cfg.MQTT.Address)
	// 未出现在文件里的字段保持默认值
	assert.Equal(t, "XVID", cfg.Record.Codec)
	assert.Equal(t, 1, cfg.Record.Count)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("USBRECORD_CAMERA_INDEX", "3")
	t.Setenv("USBRECORD_OUTPUT_ROOT", "/tmp/rec")
	t.Setenv("USBRECORD_LOG_LEVEL", "debug")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 3, cfg.Camera.Index)
	assert.Equal(t, "/tmp/rec", cfg.Output.Root)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoadEnvIgnoresGarbageInt(t *testing.T) {
	t.Setenv("USBRECORD_CAMERA_INDEX", "two")
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, -1, cfg.Camera.Index)
}

func TestLoadErrors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("camera: [1, 2"), 0o644))
	_, err = Load(path)
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
		ok     bool
	}{
		{"defaults", func(*Config) {}, true},
		{"zero width", func(c *Config) { c.Camera.Width = 0 }, false},
		{"zero fps", func(c *Config) { c.Camera.FPS = 0 }, false},
		{"empty main dir", func(c *Config) { c.Output.MainDir = "" }, false},
		{"short codec", func(c *Config) { c.Record.Codec = "X26" }, false},
		{"negative duration", func(c *Config) { c.Record.Duration = -time.Second }, false},
		{"unknown slice mode", func(c *Config) { c.Slice.Mode = "chunks" }, false},
		{"segments without length", func(c *Config) {
			c.Slice.Mode = recorder.SliceSegments
			c.Slice.Segment = 0
		}, false},
		{"relay packet size", func(c *Config) {
			c.Relay.Enabled = true
			c.Relay.PacketSize = 0
		}, false},
		{"unknown relay codec", func(c *Config) { c.Relay.Codec = "vp9" }, false},
		{"jpeg relay codec", func(c *Config) { c.Relay.Codec = relay.CodecJPEG }, true},
		{"mqtt prefix", func(c *Config) {
			c.MQTT.Enabled = true
			c.MQTT.TopicPrefix = ""
		}, false},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			cfg := Default()
			c.mutate(cfg)
			err := cfg.Validate()
			if c.ok {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}
