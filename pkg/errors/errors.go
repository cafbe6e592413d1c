// Package errors はプロジェクト全体のエラーハンドリングと警告システムを提供します。
//
// 推論経路はプロセスを終了させない。以下の失敗はすべて型付きエラーとして
// 返され、呼び出し側は As で判別する。
package errors

import (
	"fmt"
	"log"
	"strings"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog"
)

// ===========================================================================
//
//	グローバル警告ハンドリング
//
// ===========================================================================
var (
	warningMutex   sync.Mutex
	warningHandler = func(w error) {
		log.Printf("bacpanel-warning: %v\n", w)
	}
	// zerologロガー（循環importを避けるため遅延初期化）
	zerologWarnFunc func(warning error)
)

// SetZerologWarnFunc はzerolog警告関数を設定します（循環importを避けるため）。
func SetZerologWarnFunc(warnFunc func(warning error)) {
	warningMutex.Lock()
	defer warningMutex.Unlock()
	zerologWarnFunc = warnFunc
}

// Warn は警告を発生させます。
// zerologが設定されている場合は構造化ログとして出力し、そうでなければ従来のハンドラを使用します。
func Warn(w error) {
	warningMutex.Lock()
	defer warningMutex.Unlock()

	if zerologWarnFunc != nil {
		zerologWarnFunc(w)
		return
	}

	if warningHandler != nil {
		warningHandler(w)
	}
}

// UndefinedMetricWarning は評価指標が計算できない場合に発生する警告です。
// 例えば、テストデータのターゲットが定数でR²の分母が0になる場合など。
type UndefinedMetricWarning struct {
	Metric    string
	Condition string
	Result    float64 // この条件で返される値
}

func (w *UndefinedMetricWarning) Error() string {
	return fmt.Sprintf("'%s' is ill-defined and being set to %f due to %s.", w.Metric, w.Result, w.Condition)
}

// NewUndefinedMetricWarning は新しいUndefinedMetricWarningを作成します。
func NewUndefinedMetricWarning(metric, condition string, result float64) *UndefinedMetricWarning {
	return &UndefinedMetricWarning{Metric: metric, Condition: condition, Result: result}
}

// ===========================================================================
//
//	構造化されたエラー型
//
// ===========================================================================

// NotFittedError はモデルが未学習の状態で `Predict` や `Transform` を呼び出した場合のエラーです。
type NotFittedError struct {
	ModelName string
	Method    string
}

func (e *NotFittedError) Error() string {
	return fmt.Sprintf("bacpanel: %s: this model is not fitted yet. Call Fit() before using %s()", e.ModelName, e.Method)
}

// MarshalZerologObject はzerologのイベントに構造化されたエラー情報を追加します。
func (e *NotFittedError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("model_name", e.ModelName).
		Str("method", e.Method).
		Str("type", "NotFittedError")
}

// NewNotFittedError は新しいNotFittedErrorを作成し、スタックトレースを付与します。
func NewNotFittedError(modelName, method string) error {
	err := &NotFittedError{ModelName: modelName, Method: method}
	return errors.WithStack(err)
}

// DimensionError は入力データの次元が期待値と異なる場合のエラーです。
type DimensionError struct {
	Op       string
	Expected int
	Got      int
	Axis     int // 0 for rows, 1 for columns/features
}

func (e *DimensionError) Error() string {
	return fmt.Sprintf("bacpanel: %s: dimension mismatch on axis %d (%s). Expected %d, got %d",
		e.Op, e.Axis, e.axisName(), e.Expected, e.Got)
}

func (e *DimensionError) axisName() string {
	if e.Axis == 0 {
		return "rows"
	}
	return "features"
}

// MarshalZerologObject はzerologのイベントに構造化されたエラー情報を追加します。
func (e *DimensionError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("operation", e.Op).
		Int("expected", e.Expected).
		Int("got", e.Got).
		Int("axis", e.Axis).
		Str("axis_name", e.axisName()).
		Str("type", "DimensionError")
}

// NewDimensionError は新しいDimensionErrorを作成し、スタックトレースを付与します。
func NewDimensionError(op string, expected, got, axis int) error {
	err := &DimensionError{Op: op, Expected: expected, Got: got, Axis: axis}
	return errors.WithStack(err)
}

// SchemaError は特徴量やターゲットの列構成が期待されるスキーマと一致しない場合のエラーです。
// 学習データの読み込み時は致命的、推論時はアーティファクトの検証に使われます。
type SchemaError struct {
	Op       string
	Reason   string
	Expected []string
	Got      []string
}

func (e *SchemaError) Error() string {
	msg := fmt.Sprintf("bacpanel: %s: schema mismatch: %s", e.Op, e.Reason)
	if len(e.Expected) > 0 || len(e.Got) > 0 {
		msg += fmt.Sprintf(" (expected %s; got %s)", abbreviate(e.Expected), abbreviate(e.Got))
	}
	return msg
}

// MarshalZerologObject はzerologのイベントに構造化されたエラー情報を追加します。
func (e *SchemaError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("operation", e.Op).
		Str("reason", e.Reason).
		Strs("expected", e.Expected).
		Strs("got", e.Got).
		Str("type", "SchemaError")
}

// NewSchemaError は新しいSchemaErrorを作成し、スタックトレースを付与します。
func NewSchemaError(op, reason string, expected, got []string) error {
	err := &SchemaError{Op: op, Reason: reason, Expected: expected, Got: got}
	return errors.WithStack(err)
}

func abbreviate(names []string) string {
	const limit = 6
	if len(names) <= limit {
		return "[" + strings.Join(names, " ") + "]"
	}
	return fmt.Sprintf("[%s ... (%d total)]", strings.Join(names[:limit], " "), len(names))
}

// ValidationError は入力パラメータの検証に失敗した場合のエラーです。
// 呼び出し側は入力を修正して再試行できます。
type ValidationError struct {
	ParamName string
	Reason    string
	Value     interface{}
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("bacpanel: validation failed for parameter '%s': %s (got: %v)", e.ParamName, e.Reason, e.Value)
}

// MarshalZerologObject はzerologのイベントに構造化されたエラー情報を追加します。
func (e *ValidationError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("param_name", e.ParamName).
		Str("reason", e.Reason).
		Interface("value", e.Value).
		Str("type", "ValidationError")
}

// NewValidationError は新しいValidationErrorを作成し、スタックトレースを付与します。
func NewValidationError(param, reason string, value interface{}) error {
	err := &ValidationError{ParamName: param, Reason: reason, Value: value}
	return errors.WithStack(err)
}

// InvalidArgumentError は呼び出し側の契約違反（範囲外の引数など）を表します。
type InvalidArgumentError struct {
	Op       string
	Argument string
	Value    interface{}
	Reason   string
}

func (e *InvalidArgumentError) Error() string {
	return fmt.Sprintf("bacpanel: %s: invalid argument %s=%v: %s", e.Op, e.Argument, e.Value, e.Reason)
}

// MarshalZerologObject はzerologのイベントに構造化されたエラー情報を追加します。
func (e *InvalidArgumentError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("operation", e.Op).
		Str("argument", e.Argument).
		Interface("value", e.Value).
		Str("reason", e.Reason).
		Str("type", "InvalidArgumentError")
}

// NewInvalidArgumentError は新しいInvalidArgumentErrorを作成し、スタックトレースを付与します。
func NewInvalidArgumentError(op, argument string, value interface{}, reason string) error {
	err := &InvalidArgumentError{Op: op, Argument: argument, Value: value, Reason: reason}
	return errors.WithStack(err)
}

// ArtifactNotFoundError は保存先に学習済みアーティファクトが存在しない場合のエラーです。
// 一度も学習していない環境では正常に起こり得る状態です。
type ArtifactNotFoundError struct {
	Path string
}

func (e *ArtifactNotFoundError) Error() string {
	return fmt.Sprintf("bacpanel: model artifact not found at %q. Train the model first", e.Path)
}

// MarshalZerologObject はzerologのイベントに構造化されたエラー情報を追加します。
func (e *ArtifactNotFoundError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("path", e.Path).
		Str("type", "ArtifactNotFoundError")
}

// NewArtifactNotFoundError は新しいArtifactNotFoundErrorを作成し、スタックトレースを付与します。
func NewArtifactNotFoundError(path string) error {
	return errors.WithStack(&ArtifactNotFoundError{Path: path})
}

// ModelUnavailableError は推論サービスが縮退モードで予測できない場合のエラーです。
// Err には縮退の原因（ArtifactNotFoundError や SchemaError）が入ります。
type ModelUnavailableError struct {
	Err error
}

func (e *ModelUnavailableError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("bacpanel: model unavailable: %v", e.Err)
	}
	return "bacpanel: model unavailable"
}

func (e *ModelUnavailableError) Unwrap() error {
	return e.Err
}

// MarshalZerologObject はzerologのイベントに構造化されたエラー情報を追加します。
func (e *ModelUnavailableError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("type", "ModelUnavailableError")
	if e.Err != nil {
		event.Str("cause", e.Err.Error())
	}
}

// NewModelUnavailableError は新しいModelUnavailableErrorを作成し、スタックトレースを付与します。
func NewModelUnavailableError(cause error) error {
	return errors.WithStack(&ModelUnavailableError{Err: cause})
}

// TrainingFailedError はオフライン学習ジョブのいずれかの段階が失敗したことを表します。
// このエラーが返された場合、アーティファクトは保存されていません。
type TrainingFailedError struct {
	Stage string
	Err   error
}

func (e *TrainingFailedError) Error() string {
	return fmt.Sprintf("bacpanel: training failed at stage %q: %v", e.Stage, e.Err)
}

func (e *TrainingFailedError) Unwrap() error {
	return e.Err
}

// MarshalZerologObject はzerologのイベントに構造化されたエラー情報を追加します。
func (e *TrainingFailedError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("stage", e.Stage).
		Str("cause", fmt.Sprint(e.Err)).
		Str("type", "TrainingFailedError")
}

// NewTrainingFailedError は新しいTrainingFailedErrorを作成し、スタックトレースを付与します。
func NewTrainingFailedError(stage string, err error) error {
	return errors.WithStack(&TrainingFailedError{Stage: stage, Err: err})
}

// ValueError は引数の値が不適切または不正な場合に発生するエラーです。
type ValueError struct {
	Op      string
	Message string
}

func (e *ValueError) Error() string {
	return fmt.Sprintf("bacpanel: %s: %s", e.Op, e.Message)
}

// NewValueError は新しいValueErrorを作成し、スタックトレースを付与します。
func NewValueError(op, message string) error {
	err := &ValueError{Op: op, Message: message}
	return errors.WithStack(err)
}

// ModelError は機械学習モデルに関する一般的なエラーです。
type ModelError struct {
	Op   string
	Kind string
	Err  error
}

func (e *ModelError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("bacpanel: %s: %s: %v", e.Op, e.Kind, e.Err)
	}
	return fmt.Sprintf("bacpanel: %s: %s", e.Op, e.Kind)
}

func (e *ModelError) Unwrap() error {
	return e.Err
}

// NewModelError は新しいModelErrorを作成し、スタックトレースを付与します。
func NewModelError(op, kind string, err error) error {
	modelErr := &ModelError{Op: op, Kind: kind, Err: err}
	return errors.WithStack(modelErr)
}

// ===========================================================================
//
//	cockroachdb/errors ラッパー関数
//
// ===========================================================================

// Is はエラーが特定のターゲットエラーかどうかを判定します。
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As はエラーが特定の型にキャスト可能かどうかを判定します。
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}

// Wrap は既存のエラーをメッセージ付きでラップします。
func Wrap(err error, message string) error {
	return errors.Wrap(err, message)
}

// Wrapf は既存のエラーをフォーマット文字列でラップします。
func Wrapf(err error, format string, args ...interface{}) error {
	return errors.Wrapf(err, format, args...)
}

// New は新しいエラーを作成します。
func New(message string) error {
	return errors.New(message)
}

// Newf は新しいフォーマット済みエラーを作成します。
func Newf(format string, args ...interface{}) error {
	return errors.Newf(format, args...)
}

// WithStack はエラーにスタックトレースを付与します。
func WithStack(err error) error {
	return errors.WithStack(err)
}

// ===========================================================================
//
//	共通エラー変数
//
// ===========================================================================

var (
	// ErrEmptyData は空のデータが渡された場合のエラーです。
	ErrEmptyData = New("empty data")

	// ErrAlreadyFitted は学習済みのモデルを再学習しようとした場合のエラーです。
	ErrAlreadyFitted = New("already fitted")
)
