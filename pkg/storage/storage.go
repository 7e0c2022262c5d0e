package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// SessionLayout 会话目录名与录像文件名中的时间格式
const SessionLayout = "20060102_150405"

// EnsureDir 目录不存在时创建
func EnsureDir(path string) error {
	if err := os.MkdirAll(path, 0o755); err != nil {
		return fmt.Errorf("创建目录失败 %s: %w", path, err)
	}
	return nil
}

// CreateSessionDir 在 root/mainDir 下创建以时间命名的子目录，root 为空时使用当前工作目录。
// 子目录已存在时返回错误，避免覆盖上一次的录像。
func CreateSessionDir(root, mainDir string, now time.Time) (string, error) {
	if root == "" {
		wd, err := os.Getwd()
		if err != nil {
			return "", fmt.Errorf("获取工作目录失败: %w", err)
		}
		root = wd
	}
	mainPath := filepath.Join(root, mainDir)
	if err := EnsureDir(mainPath); err != nil {
		return "", err
	}

	sub := filepath.Join(mainPath, now.Format(SessionLayout))
	if err := os.Mkdir(sub, 0o755); err != nil {
		return "", fmt.Errorf("创建会话目录失败 %s: %w", sub, err)
	}
	return sub, nil
}

// RecordName 录像名称: <用例名>_<时间>_<计数>
func RecordName(caseName string, now time.Time, count int) string {
	return fmt.Sprintf("%s_%s_%d", caseName, now.Format(SessionLayout), count)
}
