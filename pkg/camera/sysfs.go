package camera

import (
	"context"
	"fmt"
	"github.com/samber/lo"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

var videoNode = regexp.MustCompile(`^video(\d+)$`)

// SysfsDiscovery 通过 /dev/video* 与 /sys/class/video4linux 枚举 V4L2 设备。
// Root 仅用于测试，正常为空。
type SysfsDiscovery struct {
	Root string
}

func NewSysfsDiscovery() *SysfsDiscovery {
	return &SysfsDiscovery{}
}

func (d *SysfsDiscovery) List(ctx context.Context) ([]Device, error) {
	matches, err := filepath.Glob(filepath.Join(d.Root, "dev", "video*"))
	if err != nil {
		return nil, fmt.Errorf("扫描设备失败: %w", err)
	}

	devices := make([]Device, 0, len(matches))
	for _, path := range matches {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		m := videoNode.FindStringSubmatch(filepath.Base(path))
		if m == nil {
			continue
		}
		num, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		// UVC 摄像头会额外注册一个 metadata 节点，其 index 不为 0
		if idx := d.attr(num, "index"); idx != "" && idx != "0" {
			continue
		}
		name := d.attr(num, "name")
		if name == "" {
			name = fmt.Sprintf("Camera %d", num)
		}
		devices = append(devices, Device{Index: num, Path: path, Name: name})
	}

	sort.Slice(devices, func(i, j int) bool { return devices[i].Index < devices[j].Index })
	return lo.UniqBy(devices, func(d Device) int { return d.Index }), nil
}

func (d *SysfsDiscovery) attr(num int, name string) string {
	b, err := os.ReadFile(filepath.Join(d.Root, "sys", "class", "video4linux", fmt.Sprintf("video%d", num), name))
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(b))
}
