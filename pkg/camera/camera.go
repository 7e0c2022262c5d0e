// Package camera 负责枚举系统中的摄像头/采集卡，并让用户选择其中一个。
package camera

import (
	"context"
	"errors"
	"fmt"
)

var (
	ErrNoDevices  = errors.New("do not find any cameras")
	ErrOutOfRange = errors.New("out of the selection range")
)

// Device 一个可用的视频输入设备
type Device struct {
	Index int    // 传给采集库的设备编号
	Path  string // 设备节点，探测得到的设备为空
	Name  string
}

func (d Device) String() string {
	if d.Path == "" {
		return d.Name
	}
	return fmt.Sprintf("%s (%s)", d.Name, d.Path)
}

// Discovery 设备枚举
type Discovery interface {
	List(ctx context.Context) ([]Device, error)
}
