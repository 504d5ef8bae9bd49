// Package logging constructs the zap loggers used throughout a pipeline.
package logging

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config controls logger construction
type Config struct {
	Level string // debug, info, warn or error. Defaults to info.
	JSON  bool   // emit JSON instead of console encoding
}

// New builds a zap logger writing to stderr. zap serializes its own output,
// so concurrent stages may share one logger without further locking.
func New(conf Config) (*zap.Logger, error) {
	level := zapcore.InfoLevel
	if conf.Level != "" {
		if err := level.Set(conf.Level); err != nil {
			return nil, err
		}
	}
	encConf := zap.NewProductionEncoderConfig()
	encConf.EncodeTime = zapcore.ISO8601TimeEncoder
	var enc zapcore.Encoder
	if conf.JSON {
		enc = zapcore.NewJSONEncoder(encConf)
	} else {
		encConf.EncodeLevel = zapcore.CapitalLevelEncoder
		enc = zapcore.NewConsoleEncoder(encConf)
	}
	core := zapcore.NewCore(enc, zapcore.Lock(os.Stderr), level)
	return zap.New(core), nil
}
