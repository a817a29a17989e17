package audit

import (
	"context"
	"errors"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/alif-arrizqy/jspro-powerdesk-sub000/internal/pkg/logger"
)

// FileConfig configures the JSON audit trail.
type FileConfig struct {
	// Stdout also writes each event as a JSON line to stdout.
	Stdout bool

	// Path of the rotating audit file; empty disables the file.
	Path string

	// MaxSize is the maximum size in megabytes before rotation
	MaxSize int

	// MaxBackups is the maximum number of old log files to retain
	MaxBackups int

	// MaxAge is the maximum number of days to retain old log files
	MaxAge int

	// Compress determines if rotated files should be compressed
	Compress bool
}

// ZapSink writes events as JSON lines through zap, optionally into a rotating file.
type ZapSink struct {
	logger  *zap.Logger
	rotator *lumberjack.Logger
}

// NewZapSink builds the sink. At least one of Stdout or Path must be set.
func NewZapSink(cfg FileConfig) (*ZapSink, error) {
	enc := zapcore.NewJSONEncoder(logger.EncoderConfig())
	var cores []zapcore.Core
	if cfg.Stdout {
		cores = append(cores, zapcore.NewCore(enc, zapcore.Lock(os.Stdout), zapcore.InfoLevel))
	}
	var rotator *lumberjack.Logger
	if cfg.Path != "" {
		rotator = &lumberjack.Logger{
			Filename:   cfg.Path,
			MaxSize:    cfg.MaxSize,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAge,
			Compress:   cfg.Compress,
		}
		cores = append(cores, zapcore.NewCore(enc.Clone(), zapcore.AddSync(rotator), zapcore.InfoLevel))
	}
	if len(cores) == 0 {
		return nil, errors.New("audit: zap sink needs stdout or a file path")
	}
	return &ZapSink{logger: zap.New(zapcore.NewTee(cores...)).Named("audit"), rotator: rotator}, nil
}

func (s *ZapSink) Name() string { return "zap" }

func (s *ZapSink) Write(_ context.Context, e *Event) error {
	s.logger.Info(string(e.EventType),
		zap.String("id", e.ID),
		zap.Time("event_time", e.Timestamp),
		zap.String("event_type", string(e.EventType)),
		zap.String("result", string(e.Result)),
		zap.String("username", e.Username),
		zap.String("role", e.Role),
		zap.String("auth_method", e.AuthMethod),
		zap.String("resource", e.Resource),
		zap.String("resource_type", e.ResourceType),
		zap.String("reason", e.Reason),
		zap.String("source_ip", e.SourceIP),
		zap.String("request_id", e.RequestID),
	)
	return nil
}

// Close flushes and closes the rotating file.
func (s *ZapSink) Close() error {
	_ = s.logger.Sync()
	if s.rotator != nil {
		return s.rotator.Close()
	}
	return nil
}
