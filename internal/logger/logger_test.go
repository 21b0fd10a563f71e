package logger

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestNewLogger_CreatesLogFiles(t *testing.T) {
	dir := t.TempDir()

	log, err := NewLogger(dir, "debug")
	assert.NoError(t, err)

	log.Info("划转服务启动", zap.String("addr", ":8080"))
	log.Error("划转执行失败")
	log.Sync()

	// 全量与错误日志文件均已创建
	for _, name := range []string{logFileName, errorLogFileName} {
		_, statErr := os.Stat(filepath.Join(dir, name))
		assert.NoError(t, statErr)
	}

	// 错误文件只收error及以上
	data, err := os.ReadFile(filepath.Join(dir, errorLogFileName))
	assert.NoError(t, err)
	assert.Contains(t, string(data), "划转执行失败")
	assert.NotContains(t, string(data), "划转服务启动")

	// 全量文件带固定的app字段
	data, err = os.ReadFile(filepath.Join(dir, logFileName))
	assert.NoError(t, err)
	assert.Contains(t, string(data), "划转服务启动")
	assert.Contains(t, string(data), `"app":"profit_bank"`)
}

func TestNewLogger_UnknownLevelFallsBackToInfo(t *testing.T) {
	dir := t.TempDir()

	log, err := NewLogger(dir, "not-a-level")
	assert.NoError(t, err)

	log.Debug("调试级别不应写入")
	log.Info("信息级别应写入")
	log.Sync()

	data, err := os.ReadFile(filepath.Join(dir, logFileName))
	assert.NoError(t, err)
	assert.Contains(t, string(data), "信息级别应写入")
	assert.NotContains(t, string(data), "调试级别不应写入")
}
