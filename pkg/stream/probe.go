package stream

import (
	"context"
	"fmt"
	"github.com/sirupsen/logrus"
	"github.com/stydxm/usbrecord/pkg/camera"
	"gocv.io/x/gocv"
)

// ProbeDiscovery 逐个尝试打开设备编号来枚举摄像头，用于没有 sysfs 的平台
type ProbeDiscovery struct {
	Max int // 尝试的最大编号（不含）
}

func (d *ProbeDiscovery) List(ctx context.Context) ([]camera.Device, error) {
	var devices []camera.Device
	for i := 0; i < d.Max; i++ {
		if err := ctx.Err(); err != nil {
			return devices, err
		}
		vc, err := gocv.VideoCaptureDevice(i)
		if err != nil {
			logrus.Debugf("探测设备 %d 失败: %v", i, err)
			continue
		}
		if vc.IsOpened() {
			devices = append(devices, camera.Device{Index: i, Name: fmt.Sprintf("Camera %d", i)})
		}
		_ = vc.Close()
	}
	return devices, nil
}
