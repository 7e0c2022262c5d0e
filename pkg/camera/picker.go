package camera

import (
	"bufio"
	"context"
	"fmt"
	"github.com/samber/lo"
	"github.com/sirupsen/logrus"
	"io"
	"strconv"
	"strings"
)

// Picker 打印可用设备列表并读取用户选择
type Picker struct {
	In  io.Reader
	Out io.Writer
	// Preset >= 0 时直接选择该位置的设备，不再询问
	Preset int
}

// Select 返回所选设备。列表为空返回 ErrNoDevices，输入越界或非数字返回 ErrOutOfRange。
func (p *Picker) Select(ctx context.Context, devices []Device) (Device, error) {
	if len(devices) == 0 {
		return Device{}, ErrNoDevices
	}

	last := len(devices) - 1
	logrus.Infof("Available Cameras as follow, Please choose one: (range: [0-%d])", last)
	logrus.Info(strings.Repeat("=", 50))
	lo.ForEach(devices, func(d Device, i int) {
		logrus.Infof("%d : %s", i, d)
	})
	logrus.Info(strings.Repeat("=", 50))

	choice := p.Preset
	if choice < 0 {
		var err error
		if choice, err = p.prompt(ctx, last); err != nil {
			return Device{}, err
		}
	}
	if choice < 0 || choice > last {
		return Device{}, fmt.Errorf("%w: %d not in [0-%d]", ErrOutOfRange, choice, last)
	}

	dev := devices[choice]
	logrus.Infof("You selection is: [ %d: %s ]", choice, dev)
	return dev, nil
}

// prompt 同步读取一行输入；ctx 只在读取前检查，终端读取本身无法中断
func (p *Picker) prompt(ctx context.Context, last int) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if p.Out != nil {
		_, _ = fmt.Fprintf(p.Out, "Please select the camera index from [0-%d]:", last)
	}

	line, err := bufio.NewReader(p.In).ReadString('\n')
	if err == io.EOF && line != "" {
		err = nil
	}
	if err != nil {
		return 0, fmt.Errorf("读取输入失败: %w", err)
	}
	line = strings.TrimSpace(line)
	n, err := strconv.Atoi(line)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrOutOfRange, line)
	}
	return n, nil
}
