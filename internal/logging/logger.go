package logging

import (
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Logger 是全局日志实例，未初始化时为 no-op，测试中无需额外配置
var Logger = zap.NewNop()

// Options 控制日志输出位置与级别
type Options struct {
	// File 非空时写入滚动日志文件，否则输出到 stderr
	File  string
	Level string
}

// Init 按配置构造 JSON 格式的 zap 日志并替换全局实例
func Init(opts Options) *zap.Logger {
	var writer zapcore.WriteSyncer
	if strings.TrimSpace(opts.File) != "" {
		writer = zapcore.AddSync(&lumberjack.Logger{
			Filename:   opts.File,
			MaxSize:    50, // MB
			MaxBackups: 7,
			MaxAge:     14, // days
			Compress:   true,
		})
	} else {
		writer = zapcore.Lock(os.Stderr)
	}

	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.TimeKey = "ts"
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	core := zapcore.NewCore(zapcore.NewJSONEncoder(encoderCfg), writer, parseLevel(opts.Level))
	Logger = zap.New(core, zap.AddCaller())
	return Logger
}

// Sync 刷新缓冲区，进程退出前调用
func Sync() {
	_ = Logger.Sync()
}

func parseLevel(raw string) zapcore.Level {
	var level zapcore.Level
	if err := level.UnmarshalText([]byte(strings.ToLower(strings.TrimSpace(raw)))); err != nil {
		return zapcore.InfoLevel
	}
	return level
}
