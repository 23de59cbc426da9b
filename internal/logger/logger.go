// Package logger configures the process-wide zap logger and the gin
// middleware that routes request logs and panics through it.
package logger

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"strangerchat/backend/internal/config"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Init replaces the global logger. Records go to a rotated JSON file; dev
// mode also prints them to stdout in console format.
func Init(cfg config.LogConfig, mode string) error {
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return fmt.Errorf("parse log level %q: %w", cfg.Level, err)
	}

	fileName := cfg.FileName
	if fileName == "" {
		fileName = filepath.Join(cfg.Path, "strangerchat.log")
	}
	rotated := zapcore.AddSync(&lumberjack.Logger{
		Filename:   fileName,
		MaxSize:    cfg.MaxSize,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAge,
	})

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.TimeKey = "time"
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	cores := []zapcore.Core{zapcore.NewCore(zapcore.NewJSONEncoder(encCfg), rotated, level)}
	if mode == config.ModeDev {
		console := zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig())
		cores = append(cores, zapcore.NewCore(console, zapcore.Lock(os.Stdout), zapcore.DebugLevel))
	}

	zap.ReplaceGlobals(zap.New(zapcore.NewTee(cores...), zap.AddCaller()))
	return nil
}

// Middleware logs one line per request and turns a handler panic into a
// 500 with the stack logged at Error.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		defer func() {
			fields := []zap.Field{
				zap.String("method", c.Request.Method),
				zap.String("path", c.Request.URL.Path),
				zap.String("client_ip", c.ClientIP()),
				zap.Duration("latency", time.Since(start)),
			}
			if rec := recover(); rec != nil {
				zap.L().Error("handler panic", append(fields, zap.Any("panic", rec), zap.Stack("stack"))...)
				c.AbortWithStatus(http.StatusInternalServerError)
				return
			}
			zap.L().Info("http request", append(fields, zap.Int("status", c.Writer.Status()))...)
		}()
		c.Next()
	}
}
