package logging

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/quizdrop/quizdrop/config"
)

// Logger is the process-wide sugared logger. InitLogger must be called before use;
// the default writes to console at info level so tests and tools work without config.
var Logger *zap.SugaredLogger

func init() {
	encoder := zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig())
	core := zapcore.NewCore(encoder, zapcore.AddSync(os.Stdout), zapcore.InfoLevel)
	Logger = zap.New(core).Sugar()
}

func InitLogger(cfg *config.LogConfig) {
	level := zapcore.InfoLevel
	if err := level.Set(cfg.Level); err != nil {
		panic(err)
	}

	encoder := zapcore.NewConsoleEncoder(zap.NewProductionEncoderConfig())

	cores := make([]zapcore.Core, 0, 2)
	if cfg.UseConsoleLogger {
		cores = append(cores, zapcore.NewCore(encoder, zapcore.AddSync(os.Stdout), level))
	}
	if cfg.UseFileLogger {
		fileWriter := &lumberjack.Logger{
			Filename:   cfg.Filename,
			MaxSize:    cfg.MaxFileSizeInMB,
			MaxBackups: cfg.MaxBackupsOfLogFiles,
			MaxAge:     cfg.MaxAgeToRetainLogFilesInDays,
			Compress:   cfg.Compress,
		}
		cores = append(cores, zapcore.NewCore(encoder, zapcore.AddSync(fileWriter), level))
	}

	Logger = zap.New(zapcore.NewTee(cores...)).Sugar()
}
