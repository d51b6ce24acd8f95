package service

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/supportdesk/supportgate/internal/model"
	"github.com/supportdesk/supportgate/internal/pkg/logger"
	"github.com/supportdesk/supportgate/internal/pkg/metrics"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

const (
	serviceName    = "support-backend"
	recordMessage  = "HTTP request completed"
	recordLogType  = "http_request"
	defaultLogFile = "logs/app.json.log"

	defaultMaxSizeMB  = 10
	defaultMaxBackups = 5
)

// AuditRepo is a secondary store for request log records, used to serve the
// admin listing. The rotating file stays the system of record.
type AuditRepo interface {
	Insert(ctx context.Context, record *model.LogRecord) error
	List(ctx context.Context, user string, limit int) ([]*model.LogRecord, error)
}

type AuditOptions struct {
	File       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
	Console    bool
	BufferSize int

	// ConsoleWriter defaults to os.Stderr.
	ConsoleWriter io.Writer
}

// AuditService is the request log emitter. Emit writes the JSON record to a
// size-rotated file and a readable line to the console, synchronously and one
// whole record per write. Mirrors (repos, live subscribers) are fed from a
// bounded queue and may drop records under pressure.
type AuditService struct {
	records *zap.Logger // JSON file core
	console *zap.Logger // human-readable core
	events  *zap.Logger // tee of both, lifecycle messages
	rotator *lumberjack.Logger

	mu       sync.RWMutex
	closed   bool
	mirror   chan *model.LogRecord
	wg       sync.WaitGroup
	buffer   *auditBuffer
	repos    []AuditRepo
	stream   *auditStream
	fallback zapcore.WriteSyncer
}

func NewAuditService(opts AuditOptions, repos ...AuditRepo) *AuditService {
	if opts.File == "" {
		opts.File = defaultLogFile
	}
	if opts.BufferSize <= 0 {
		opts.BufferSize = 1000
	}
	consoleOut := opts.ConsoleWriter
	if consoleOut == nil {
		consoleOut = os.Stderr
	}
	fallback := zapcore.Lock(zapcore.AddSync(consoleOut))

	svc := &AuditService{
		mirror:   make(chan *model.LogRecord, opts.BufferSize),
		buffer:   newAuditBuffer(opts.BufferSize),
		stream:   newAuditStream(),
		fallback: fallback,
	}
	for _, repo := range repos {
		if repo != nil {
			svc.repos = append(svc.repos, repo)
		}
	}

	fileCore := zapcore.NewNopCore()
	if rotator, err := openRotator(opts); err != nil {
		logger.Error("request log file unavailable, console only", "file", opts.File, "error", err)
	} else {
		svc.rotator = rotator
		sink := &fallbackSyncer{primary: zapcore.AddSync(rotator), fallback: fallback}
		fileCore = zapcore.NewCore(zapcore.NewJSONEncoder(fileEncoderConfig()), zapcore.Lock(sink), zapcore.InfoLevel)
	}

	consoleCore := zapcore.NewNopCore()
	if opts.Console {
		consoleCore = zapcore.NewCore(zapcore.NewConsoleEncoder(consoleEncoderConfig()), fallback, zapcore.InfoLevel)
	}

	base := []zap.Field{zap.String("service", serviceName)}
	svc.records = zap.New(fileCore, zap.ErrorOutput(fallback)).Named("app").With(base...)
	svc.console = zap.New(consoleCore, zap.ErrorOutput(fallback))
	svc.events = zap.New(zapcore.NewTee(fileCore, consoleCore), zap.ErrorOutput(fallback)).Named("app").With(base...)

	svc.events.Info("Logger initialized",
		zap.String("event", "startup"),
		zap.String("timestamp", time.Now().UTC().Format(time.RFC3339Nano)),
	)

	svc.wg.Add(1)
	go svc.processMirror()

	return svc
}

func openRotator(opts AuditOptions) (*lumberjack.Logger, error) {
	if err := os.MkdirAll(filepath.Dir(opts.File), 0o755); err != nil {
		return nil, err
	}
	// lumberjack opens lazily; open once now so a bad path is reported at startup
	f, err := os.OpenFile(opts.File, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, err
	}
	_ = f.Close()

	// lumberjack treats 0 as "keep every segment"
	if opts.MaxBackups <= 0 {
		opts.MaxBackups = defaultMaxBackups
	}
	if opts.MaxSizeMB <= 0 {
		opts.MaxSizeMB = defaultMaxSizeMB
	}
	return &lumberjack.Logger{
		Filename:   opts.File,
		MaxSize:    opts.MaxSizeMB,
		MaxBackups: opts.MaxBackups,
		MaxAge:     opts.MaxAgeDays,
		Compress:   opts.Compress,
	}, nil
}

func fileEncoderConfig() zapcore.EncoderConfig {
	return zapcore.EncoderConfig{
		LevelKey:      "level",
		NameKey:       "logger",
		MessageKey:    "message",
		StacktraceKey: zapcore.OmitKey,
		TimeKey:       zapcore.OmitKey, // records carry their own timestamp
		LineEnding:    zapcore.DefaultLineEnding,
		EncodeLevel:   zapcore.CapitalLevelEncoder,
		EncodeName:    zapcore.FullNameEncoder,
	}
}

func consoleEncoderConfig() zapcore.EncoderConfig {
	return zapcore.EncoderConfig{
		LevelKey:         "level",
		MessageKey:       "message",
		LineEnding:       zapcore.DefaultLineEnding,
		EncodeLevel:      zapcore.CapitalLevelEncoder,
		ConsoleSeparator: " - ",
	}
}

// Emit writes record to the sinks. It never panics and never returns an
// error: failures degrade to a marker line on the console.
func (s *AuditService) Emit(record model.LogRecord) {
	defer func() {
		if rec := recover(); rec != nil {
			metrics.RequestLogRecords.WithLabelValues("failed").Inc()
			s.writeMarker(record, fmt.Errorf("emit panic: %v", rec))
		}
	}()

	fields, err := recordFields(record)
	if err != nil {
		metrics.RequestLogRecords.WithLabelValues("degraded").Inc()
		s.records.Error(recordMessage, minimalFields(record, err)...)
	} else {
		metrics.RequestLogRecords.WithLabelValues("ok").Inc()
		s.records.Info(recordMessage, fields...)
	}

	s.console.Info(fmt.Sprintf("%s %s %d user=%s duration=%.3fs request_id=%s",
		record.Method, record.Path, record.StatusCode, record.User, record.DurationSeconds, record.ID))

	s.buffer.Add(&record)
	s.enqueueMirror(&record)
}

func recordFields(record model.LogRecord) ([]zap.Field, error) {
	reqBody, err := json.Marshal(record.RequestBody)
	if err != nil {
		return nil, fmt.Errorf("request_body: %w", err)
	}
	respBody, err := json.Marshal(record.ResponseBody)
	if err != nil {
		return nil, fmt.Errorf("response_body: %w", err)
	}
	return append(baseFields(record),
		zap.Float64("duration_seconds", record.DurationSeconds),
		zap.String("details", record.Details),
		zap.Reflect("request_body", json.RawMessage(reqBody)),
		zap.Reflect("response_body", json.RawMessage(respBody)),
	), nil
}

func baseFields(record model.LogRecord) []zap.Field {
	return []zap.Field{
		zap.String("timestamp", record.Timestamp.UTC().Format(time.RFC3339Nano)),
		zap.String("log_type", recordLogType),
		zap.String("request_id", record.ID),
		zap.String("user", record.User),
		zap.String("method", record.Method),
		zap.String("endpoint", record.Path),
		zap.Int("status_code", record.StatusCode),
	}
}

// minimalFields keeps a record identifiable when its bodies cannot be encoded.
func minimalFields(record model.LogRecord, cause error) []zap.Field {
	return append(baseFields(record),
		zap.Float64("duration_seconds", record.DurationSeconds),
		zap.String("error", "serialization failed: "+cause.Error()),
	)
}

func (s *AuditService) writeMarker(record model.LogRecord, cause error) {
	line, _ := json.Marshal(map[string]any{
		"level":       "ERROR",
		"message":     "request log record lost",
		"request_id":  record.ID,
		"status_code": record.StatusCode,
		"error":       cause.Error(),
	})
	_, _ = s.fallback.Write(append(line, '\n'))
}

func (s *AuditService) enqueueMirror(record *model.LogRecord) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return
	}
	select {
	case s.mirror <- record:
	default:
		metrics.RequestLogDropped.WithLabelValues("mirror").Inc()
		logger.Warn("request log mirror queue full, dropping record", "request_id", record.ID)
	}
}

func (s *AuditService) processMirror() {
	defer s.wg.Done()
	for record := range s.mirror {
		for _, repo := range s.repos {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			if err := repo.Insert(ctx, record); err != nil {
				metrics.RequestLogDropped.WithLabelValues("repo").Inc()
				logger.Error("failed to mirror request log record", "request_id", record.ID, "error", err)
			}
			cancel()
		}
		s.stream.publish(record)
	}
}

// List returns recent records, newest first, optionally for one user.
func (s *AuditService) List(ctx context.Context, user string, limit int) ([]*model.LogRecord, error) {
	for _, repo := range s.repos {
		records, err := repo.List(ctx, user, limit)
		if err == nil {
			return records, nil
		}
		logger.Warn("request log repo list failed, trying next source", "error", err)
	}
	return s.buffer.List(user, limit), nil
}

// Subscribe streams records emitted after the call. The returned cancel
// function must be called to release the subscription.
func (s *AuditService) Subscribe(buffer int) (<-chan *model.LogRecord, func()) {
	return s.stream.subscribe(buffer)
}

func (s *AuditService) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	close(s.mirror)
	s.mu.Unlock()

	s.wg.Wait()
	s.stream.closeAll()
	_ = s.records.Sync()
	if s.rotator != nil {
		_ = s.rotator.Close()
	}
}

// fallbackSyncer writes to primary and, when that fails, leaves a marker on
// fallback instead of surfacing the error to the caller.
type fallbackSyncer struct {
	primary  zapcore.WriteSyncer
	fallback zapcore.WriteSyncer
}

func (f *fallbackSyncer) Write(p []byte) (int, error) {
	if _, err := f.primary.Write(p); err != nil {
		metrics.RequestLogDropped.WithLabelValues("file").Inc()
		marker, _ := json.Marshal(map[string]string{
			"level":   "ERROR",
			"message": "request log sink write failed",
			"error":   err.Error(),
		})
		_, _ = f.fallback.Write(append(marker, '\n'))
	}
	return len(p), nil
}

func (f *fallbackSyncer) Sync() error {
	return f.primary.Sync()
}

type auditBuffer struct {
	mu        sync.Mutex
	maxSize   int
	records   []*model.LogRecord
	nextIndex int
}

func newAuditBuffer(maxSize int) *auditBuffer {
	if maxSize <= 0 {
		maxSize = 1000
	}
	return &auditBuffer{
		maxSize: maxSize,
		records: make([]*model.LogRecord, 0, maxSize),
	}
}

func (b *auditBuffer) Add(entry *model.LogRecord) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.records) < b.maxSize {
		b.records = append(b.records, entry)
		return
	}
	b.records[b.nextIndex] = entry
	b.nextIndex = (b.nextIndex + 1) % b.maxSize
}

func (b *auditBuffer) List(user string, limit int) []*model.LogRecord {
	b.mu.Lock()
	defer b.mu.Unlock()
	if limit <= 0 || limit > b.maxSize {
		limit = b.maxSize
	}
	results := make([]*model.LogRecord, 0, limit)
	total := len(b.records)
	for i := 0; i < total; i++ {
		idx := (b.nextIndex + total - 1 - i) % total
		entry := b.records[idx]
		if entry == nil {
			continue
		}
		if user != "" && entry.User != user {
			continue
		}
		results = append(results, entry)
		if len(results) >= limit {
			break
		}
	}
	return results
}
