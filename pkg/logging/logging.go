package logging

import (
	"fmt"
	sloglogrus "github.com/samber/slog-logrus/v2"
	"github.com/sirupsen/logrus"
	"io"
	"log/slog"
	"os"
)

// TimestampFormat 日志时间格式 [2006/01/02 15:04:05]
const TimestampFormat = "2006/01/02 15:04:05"

// Init 初始化全局 logrus。环境变量 mode=dev 时强制为 debug 级别。
func Init(out io.Writer, level string) error {
	if out == nil {
		out = os.Stdout
	}
	logrus.SetOutput(out)
	logrus.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: TimestampFormat,
	})

	lvl := logrus.InfoLevel
	if level != "" {
		parsed, err := logrus.ParseLevel(level)
		if err != nil {
			return fmt.Errorf("无效的日志级别 %q: %w", level, err)
		}
		lvl = parsed
	}
	if os.Getenv("mode") == "dev" {
		lvl = logrus.DebugLevel
	}
	logrus.SetLevel(lvl)
	return nil
}

// Slog 返回桥接到 logrus 的 slog.Logger，供只接受 slog 的组件使用
func Slog() *slog.Logger {
	level := slog.LevelInfo
	if logrus.IsLevelEnabled(logrus.DebugLevel) {
		level = slog.LevelDebug
	}
	return slog.New(sloglogrus.Option{Level: level, Logger: logrus.StandardLogger()}.NewLogrusHandler())
}
