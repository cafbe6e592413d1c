package log

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"
	"sync/atomic"

	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog"

	pkgerrors "github.com/YuminosukeSato/bacpanel/pkg/errors"
)

// ZerologProvider は zerolog をバックエンドとする LoggerProvider です。
// 出力は JSON 行で、レベルは SetLevel で実行中に変更できます。
type ZerologProvider struct {
	base  zerolog.Logger
	level atomic.Int64
}

// NewZerologProvider は標準エラー出力に書き込むプロバイダを作成します。
func NewZerologProvider(level Level) *ZerologProvider {
	return NewZerologProviderWithWriter(os.Stderr, level)
}

// NewZerologProviderWithWriter は任意の io.Writer に書き込むプロバイダを作成します。
func NewZerologProviderWithWriter(w io.Writer, level Level) *ZerologProvider {
	p := &ZerologProvider{
		// フィルタリングは Enabled で行うので zerolog 側は全レベルを通す
		base: zerolog.New(w).With().Timestamp().Logger().Level(zerolog.TraceLevel),
	}
	p.level.Store(int64(level))
	return p
}

// GetLogger は LoggerProvider の実装
func (p *ZerologProvider) GetLogger() Logger {
	return &zerologLogger{zl: p.base, provider: p}
}

// GetLoggerWithName は LoggerProvider の実装
func (p *ZerologProvider) GetLoggerWithName(name string) Logger {
	return &zerologLogger{
		zl:       p.base.With().Str(ComponentKey, name).Logger(),
		provider: p,
	}
}

// SetLevel は LoggerProvider の実装
func (p *ZerologProvider) SetLevel(level Level) {
	p.level.Store(int64(level))
}

func (p *ZerologProvider) enabled(level Level) bool {
	return int64(level) >= p.level.Load()
}

type zerologLogger struct {
	zl       zerolog.Logger
	provider *ZerologProvider
}

func (l *zerologLogger) Debug(msg string, fields ...any) {
	l.log(LevelDebug, msg, fields)
}

func (l *zerologLogger) Info(msg string, fields ...any) {
	l.log(LevelInfo, msg, fields)
}

func (l *zerologLogger) Warn(msg string, fields ...any) {
	l.log(LevelWarn, msg, fields)
}

func (l *zerologLogger) Error(msg string, fields ...any) {
	l.log(LevelError, msg, fields)
}

func (l *zerologLogger) With(fields ...any) Logger {
	ctx := l.zl.With()
	if len(fields) > 0 {
		if err, ok := fields[0].(error); ok {
			ctx = ctx.Str(ErrAttrKey, err.Error())
			fields = fields[1:]
		}
	}
	for i := 0; i+1 < len(fields); i += 2 {
		ctx = ctx.Interface(fmt.Sprint(fields[i]), fieldValue(fields[i+1]))
	}
	return &zerologLogger{zl: ctx.Logger(), provider: l.provider}
}

func (l *zerologLogger) Enabled(_ context.Context, level Level) bool {
	return l.provider.enabled(level)
}

func (l *zerologLogger) log(level Level, msg string, fields []any) {
	if !l.provider.enabled(level) {
		return
	}
	var e *zerolog.Event
	switch level {
	case LevelDebug:
		e = l.zl.Debug()
	case LevelInfo:
		e = l.zl.Info()
	case LevelWarn:
		e = l.zl.Warn()
	default:
		e = l.zl.Error()
	}

	if len(fields) > 0 {
		if err, ok := fields[0].(error); ok {
			addError(e, err)
			fields = fields[1:]
		}
	}
	for i := 0; i+1 < len(fields); i += 2 {
		key := fmt.Sprint(fields[i])
		if err, ok := fields[i+1].(error); ok {
			e.Str(key, err.Error())
			continue
		}
		e.Interface(key, fieldValue(fields[i+1]))
	}
	if len(fields)%2 == 1 {
		e.Interface("!BADKEY", fields[len(fields)-1])
	}
	e.Msg(msg)
}

// addError は err の文言、構造化された詳細、スタックトレースを付加します。
func addError(e *zerolog.Event, err error) {
	e.Str(ErrAttrKey, err.Error())
	var m zerolog.LogObjectMarshaler
	if errors.As(err, &m) {
		e.Object(ErrAttrKey+"_detail", m)
	}
	if st := extractStacktrace(err); st != "" {
		e.Str(StacktraceAttrKey, st)
	}
}

func fieldValue(v any) any {
	if err, ok := v.(error); ok {
		return err.Error()
	}
	return v
}

var (
	globalMu       sync.RWMutex
	globalProvider LoggerProvider
)

// SetGlobalProvider は GetLogger / GetLoggerWithName が使うプロバイダを差し替え、
// ライブラリ警告をそのプロバイダへ流します。
func SetGlobalProvider(p LoggerProvider) {
	globalMu.Lock()
	globalProvider = p
	globalMu.Unlock()

	warnLogger := p.GetLoggerWithName("warnings")
	pkgerrors.SetZerologWarnFunc(func(w error) {
		warnLogger.Warn(w.Error(), ErrorTypeKey, fmt.Sprintf("%T", w))
	})
}

// GetGlobalProvider はプロセス全体のプロバイダを返す。
// 未設定なら info レベルの zerolog プロバイダを作成する。
func GetGlobalProvider() LoggerProvider {
	globalMu.RLock()
	p := globalProvider
	globalMu.RUnlock()
	if p != nil {
		return p
	}

	globalMu.Lock()
	defer globalMu.Unlock()
	if globalProvider == nil {
		globalProvider = NewZerologProvider(LevelInfo)
	}
	return globalProvider
}

// GetLogger はグローバルプロバイダの既定ロガーを返す
func GetLogger() Logger {
	return GetGlobalProvider().GetLogger()
}

// GetLoggerWithName はグローバルプロバイダのコンポーネント別ロガーを返す
func GetLoggerWithName(name string) Logger {
	return GetGlobalProvider().GetLoggerWithName(name)
}
