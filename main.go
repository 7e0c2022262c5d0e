package main

import (
	"context"
	"flag"
	"fmt"
	"github.com/sirupsen/logrus"
	"github.com/stydxm/usbrecord/pkg/app"
	"github.com/stydxm/usbrecord/pkg/camera"
	"github.com/stydxm/usbrecord/pkg/config"
	"github.com/stydxm/usbrecord/pkg/logging"
	"github.com/stydxm/usbrecord/pkg/media"
	"github.com/stydxm/usbrecord/pkg/relay"
	"github.com/stydxm/usbrecord/pkg/stream"
	"os"
	"os/signal"
	"runtime"
	"syscall"
)

func main() {
	var (
		configPath = flag.String("config", "", "YAML 配置文件路径")
		cameraIdx  = flag.Int("camera", -2, "摄像头在列表中的位置，-1 交互选择（默认取配置）")
		outRoot    = flag.String("out", "", "录像根目录（默认当前目录）")
		help       = flag.Bool("help", false, "显示帮助")
	)
	flag.Parse()

	if *help {
		fmt.Println("usbrecord: USB 摄像头 / HDMI 采集卡录像")
		fmt.Println()
		fmt.Println("选项:")
		flag.PrintDefaults()
		os.Exit(0)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		logrus.Fatalf("加载配置失败: %v", err)
	}
	if *cameraIdx != -2 {
		cfg.Camera.Index = *cameraIdx
	}
	if *outRoot != "" {
		cfg.Output.Root = *outRoot
	}
	if err := logging.Init(os.Stdout, cfg.Log.Level); err != nil {
		logrus.Fatalf("初始化日志失败: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var discovery camera.Discovery = camera.NewSysfsDiscovery()
	if runtime.GOOS != "linux" {
		discovery = &stream.ProbeDiscovery{Max: 10}
	}

	res, err := app.Run(ctx, cfg, app.Deps{
		Backend:   stream.NewBackend(),
		Discovery: discovery,
		In:        os.Stdin,
		Out:       os.Stdout,
		NewRelayTap: func(codec relay.Codec, s *relay.Sender, fps float64) media.Writer {
			return stream.NewRelayTap(codec, s, fps)
		},
	})
	if err != nil {
		logrus.Fatalf("录像失败: %v", err)
	}
	logrus.Infof("退出程序: 会话 %s, 共 %d 帧, 目录 %s, 耗时 %s",
		res.Session, res.Record.Frames, res.Dir, res.Duration)
}
