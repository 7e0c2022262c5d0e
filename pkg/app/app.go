// Package app 串联一次完整的录像会话：建目录、选摄像头、预览、录像、打时间戳、停止、切片、释放。
package app

import (
	"context"
	"errors"
	"fmt"
	"github.com/rs/xid"
	"github.com/sirupsen/logrus"
	"github.com/stydxm/usbrecord/pkg/camera"
	"github.com/stydxm/usbrecord/pkg/config"
	"github.com/stydxm/usbrecord/pkg/events"
	"github.com/stydxm/usbrecord/pkg/media"
	"github.com/stydxm/usbrecord/pkg/recorder"
	"github.com/stydxm/usbrecord/pkg/relay"
	"github.com/stydxm/usbrecord/pkg/storage"
	"io"
	"time"
)

// Deps 会话依赖的外部能力
type Deps struct {
	Backend   media.Backend
	Discovery camera.Discovery
	In        io.Reader // 交互选择摄像头的输入
	Out       io.Writer
	// NewRelayTap 按 relay.codec 把 UDP 发送端包装为帧输出，relay.enabled 时使用
	NewRelayTap func(codec relay.Codec, sender *relay.Sender, fps float64) media.Writer
	Now         func() time.Time
}

// Result 会话产物
type Result struct {
	Session  string
	Dir      string
	Device   camera.Device
	Record   recorder.Status
	Slice    recorder.SliceResult
	Duration time.Duration
}

func Run(ctx context.Context, cfg *config.Config, deps Deps) (res Result, err error) {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	res.Session = xid.New().String()
	began := deps.Now()
	defer func() { res.Duration = deps.Now().Sub(began) }()

	dir, err := storage.CreateSessionDir(cfg.Output.Root, cfg.Output.MainDir, deps.Now())
	if err != nil {
		return res, err
	}
	res.Dir = dir
	logrus.Infof("录像保存目录: %s", dir)

	devices, err := deps.Discovery.List(ctx)
	if err != nil {
		return res, fmt.Errorf("failed to initialize cameras or list cameras: %w", err)
	}
	picker := &camera.Picker{In: deps.In, Out: deps.Out, Preset: cfg.Camera.Index}
	dev, err := picker.Select(ctx, devices)
	if err != nil {
		return res, err
	}
	res.Device = dev

	opts := recorder.Options{
		Settings: media.Settings{
			Index:     dev.Index,
			Width:     cfg.Camera.Width,
			Height:    cfg.Camera.Height,
			FPS:       cfg.Camera.FPS,
			Autofocus: cfg.Camera.Autofocus,
			WarmUp:    cfg.Camera.WarmUp,
		},
		Codec:          cfg.Record.Codec,
		Extension:      cfg.Record.Extension,
		ImageExtension: cfg.Slice.ImageExtension,
		WindowName:     cfg.Preview.Window,
		Session:        res.Session,
		Now:            deps.Now,
	}

	if cfg.Relay.Enabled {
		if deps.NewRelayTap == nil {
			return res, errors.New("relay enabled but no relay tap available")
		}
		sender, err := relay.Dial(cfg.Relay.Address, cfg.Relay.PacketSize)
		if err != nil {
			return res, err
		}
		tap := deps.NewRelayTap(cfg.Relay.Codec, sender, float64(cfg.Camera.FPS))
		defer func() { _ = tap.Close() }()
		opts.Taps = append(opts.Taps, tap)
	}

	var pub *events.Publisher
	if cfg.MQTT.Enabled {
		broker, err := events.StartBroker(cfg.MQTT.Address)
		if err != nil {
			return res, err
		}
		defer func() { _ = broker.Close() }()
		pub = events.NewPublisher(broker, cfg.MQTT.TopicPrefix, res.Session)
		opts.Notifier = pub
	}

	rec := recorder.New(deps.Backend, opts)
	if pub != nil && cfg.MQTT.StatusInterval > 0 {
		statusCtx, cancel := context.WithCancel(ctx)
		defer cancel()
		go pub.RunStatus(statusCtx, cfg.MQTT.StatusInterval, func() map[string]any {
			return rec.Status().Fields()
		})
	}
	defer func() {
		if rerr := rec.Release(); rerr != nil {
			err = errors.Join(err, rerr)
		}
	}()

	return session(ctx, cfg, rec, dir, res)
}

// session 原示例的主流程，步骤之间按配置停顿
func session(ctx context.Context, cfg *config.Config, rec *recorder.Recorder, dir string, res Result) (Result, error) {
	if err := rec.Open(); err != nil {
		return res, err
	}
	if err := sleep(ctx, cfg.Record.Settle); err != nil {
		return res, err
	}

	if cfg.Preview.Enabled {
		if err := rec.Preview(ctx, cfg.Preview.Timeout); err != nil {
			return res, err
		}
		if err := sleep(ctx, cfg.Record.Settle); err != nil {
			return res, err
		}
	}

	if err := rec.Start(ctx, dir, cfg.Record.CaseName, cfg.Record.Count, cfg.Record.Timeout); err != nil {
		return res, err
	}
	// ctx 取消时录像线程自行退出，Stop 只负责等待
	_ = sleep(ctx, cfg.Record.MarkDelay)
	rec.StartTimeMark()
	_ = sleep(ctx, cfg.Record.Duration)
	if err := rec.Stop(); err != nil {
		return res, err
	}
	res.Record = rec.Status()
	if err := ctx.Err(); err != nil {
		return res, err
	}

	if cfg.Slice.Enabled {
		if err := sleep(ctx, cfg.Record.Settle); err != nil {
			return res, err
		}
		slice, err := rec.Slice(cfg.Slice.Mode, cfg.Slice.Segment)
		res.Slice = slice
		if err != nil {
			return res, err
		}
	}
	return res, nil
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
