package logger

import (
	"gopkg.in/natefinch/lumberjack.v2"
)

const bytesPerMB = 1 << 20

// RotatingFile 返回按大小滚动的日志文件写入器；maxBytes 向上取整到 MB。
// backups 为保留的历史文件数，0 表示全部保留。
func RotatingFile(path string, maxBytes int64, backups int) *lumberjack.Logger {
	sizeMB := int((maxBytes + bytesPerMB - 1) / bytesPerMB)
	if sizeMB < 1 {
		sizeMB = 1
	}
	if backups < 0 {
		backups = 0
	}
	return &lumberjack.Logger{
		Filename:   path,
		MaxSize:    sizeMB,
		MaxBackups: backups,
	}
}
