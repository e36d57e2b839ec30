// Package errors はライブラリ全体のエラーハンドリングと警告システムを提供します。
// ggeffectsの予測処理で発生する構造化されたエラー情報を提供します。
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
		// デフォルトのハンドラは標準エラー出力にログを出す
		log.Printf("ggeffects-Warning: %v\n", w)
	}
	// zerologロガー（循環importを避けるため遅延初期化）
	zerologWarnFunc func(warning error)
)

// SetWarningHandler はライブラリ全体の警告ハンドラを設定します。
// これにより、ExtrapolationWarningなどのカスタム警告の処理方法を制御できます。
//
// 例:
//
//	errors.SetWarningHandler(func(w error) {
//	    // 警告を無視する
//	})
func SetWarningHandler(handler func(w error)) {
	warningMutex.Lock()
	defer warningMutex.Unlock()
	warningHandler = handler
}

// SetZerologWarnFunc はzerolog警告関数を設定します（循環importを避けるため）。
func SetZerologWarnFunc(warnFunc func(warning error)) {
	warningMutex.Lock()
	defer warningMutex.Unlock()
	zerologWarnFunc = warnFunc
}

// UseZerolog は警告を指定されたzerologロガーに構造化ログとして出力するように設定します。
// 警告型がzerolog.LogObjectMarshalerを実装している場合はそのフィールドも埋め込まれます。
func UseZerolog(logger zerolog.Logger) {
	SetZerologWarnFunc(func(warning error) {
		ev := logger.Warn()
		if obj, ok := warning.(zerolog.LogObjectMarshaler); ok {
			ev = ev.EmbedObject(obj)
		}
		ev.Msg(warning.Error())
	})
}

// Warn は警告を発生させます。
// zerologが利用可能な場合は構造化ログとして出力し、そうでなければ従来のハンドラを使用します。
func Warn(w error) {
	warningMutex.Lock()
	defer warningMutex.Unlock()

	// zerologが設定されている場合は優先的に使用
	if zerologWarnFunc != nil {
		zerologWarnFunc(w)
		return
	}

	// フォールバック: 従来のハンドラ
	if warningHandler != nil {
		warningHandler(w)
	}
}

// ===========================================================================
//
//	警告型
//
// ===========================================================================

// ExtrapolationWarning は焦点予測子に観測範囲外の値が指定された場合に発生する警告です。
// 予測自体は続行されますが、外挿領域の信頼区間は信頼できない可能性があります。
type ExtrapolationWarning struct {
	Term     string
	Value    float64
	Min, Max float64
}

func (w *ExtrapolationWarning) Error() string {
	return fmt.Sprintf("value %g for term '%s' is outside the observed range [%g, %g]; predictions are extrapolated",
		w.Value, w.Term, w.Min, w.Max)
}

// MarshalZerologObject はzerologのイベントに構造化された警告情報を追加します。
func (w *ExtrapolationWarning) MarshalZerologObject(e *zerolog.Event) {
	e.Str("term", w.Term).
		Float64("value", w.Value).
		Float64("observed_min", w.Min).
		Float64("observed_max", w.Max).
		Str("type", "ExtrapolationWarning")
}

// NewExtrapolationWarning は新しいExtrapolationWarningを作成します。
func NewExtrapolationWarning(term string, value, min, max float64) *ExtrapolationWarning {
	return &ExtrapolationWarning{Term: term, Value: value, Min: min, Max: max}
}

// ConvergenceWarning はIRLSなどの反復推定が収束しなかった場合に発生する警告です。
type ConvergenceWarning struct {
	Algorithm  string
	Iterations int
	Message    string
}

func (w *ConvergenceWarning) Error() string {
	if w.Message != "" {
		return fmt.Sprintf("%s failed to converge after %d iterations: %s", w.Algorithm, w.Iterations, w.Message)
	}
	return fmt.Sprintf("%s failed to converge after %d iterations. Consider increasing max_iter or adjusting parameters.", w.Algorithm, w.Iterations)
}

// MarshalZerologObject はzerologのイベントに構造化された警告情報を追加します。
func (w *ConvergenceWarning) MarshalZerologObject(e *zerolog.Event) {
	e.Str("algorithm", w.Algorithm).
		Int("iterations", w.Iterations).
		Str("message", w.Message).
		Str("type", "ConvergenceWarning")
}

// NewConvergenceWarning は新しいConvergenceWarningを作成します。
func NewConvergenceWarning(algorithm string, iterations int, message string) *ConvergenceWarning {
	return &ConvergenceWarning{Algorithm: algorithm, Iterations: iterations, Message: message}
}

// ===========================================================================
//
//	構造化されたエラー型
//
// ===========================================================================

// UnsupportedModelError はアダプタが登録されていないモデル型に対するエラーです。
type UnsupportedModelError struct {
	TypeName string
}

func (e *UnsupportedModelError) Error() string {
	return fmt.Sprintf("ggeffects: no adapter registered for model type %s", e.TypeName)
}

// MarshalZerologObject はzerologのイベントに構造化されたエラー情報を追加します。
func (e *UnsupportedModelError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("model_type", e.TypeName).
		Str("type", "UnsupportedModelError")
}

// NewUnsupportedModelError は新しいUnsupportedModelErrorを作成し、スタックトレースを付与します。
func NewUnsupportedModelError(typeName string) error {
	err := &UnsupportedModelError{TypeName: typeName}
	return errors.WithStack(err)
}

// InvalidTermsError は焦点予測子の指定が不正な場合のエラーです。
// 項数の超過、モデルに存在しない項名、構文エラーなどを示します。
type InvalidTermsError struct {
	Terms  []string
	Reason string
}

func (e *InvalidTermsError) Error() string {
	if len(e.Terms) > 0 {
		return fmt.Sprintf("ggeffects: invalid terms [%s]: %s", strings.Join(e.Terms, ", "), e.Reason)
	}
	return fmt.Sprintf("ggeffects: invalid terms: %s", e.Reason)
}

// MarshalZerologObject はzerologのイベントに構造化されたエラー情報を追加します。
func (e *InvalidTermsError) MarshalZerologObject(event *zerolog.Event) {
	event.Strs("terms", e.Terms).
		Str("reason", e.Reason).
		Str("type", "InvalidTermsError")
}

// NewInvalidTermsError は新しいInvalidTermsErrorを作成し、スタックトレースを付与します。
func NewInvalidTermsError(terms []string, reason string) error {
	err := &InvalidTermsError{Terms: terms, Reason: reason}
	return errors.WithStack(err)
}

// PredictionFailureError はモデルの予測処理自体が失敗した場合のエラーです。
type PredictionFailureError struct {
	ModelName string
	Op        string
	Err       error
}

func (e *PredictionFailureError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("ggeffects: %s: prediction failed in %s: %v", e.ModelName, e.Op, e.Err)
	}
	return fmt.Sprintf("ggeffects: %s: prediction failed in %s", e.ModelName, e.Op)
}

func (e *PredictionFailureError) Unwrap() error {
	return e.Err
}

// MarshalZerologObject はzerologのイベントに構造化されたエラー情報を追加します。
func (e *PredictionFailureError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("model_name", e.ModelName).
		Str("operation", e.Op).
		Str("type", "PredictionFailureError")
	if e.Err != nil {
		event.Str("cause", e.Err.Error())
	}
}

// NewPredictionFailureError は新しいPredictionFailureErrorを作成し、スタックトレースを付与します。
func NewPredictionFailureError(modelName, op string, err error) error {
	predErr := &PredictionFailureError{ModelName: modelName, Op: op, Err: err}
	return errors.WithStack(predErr)
}

// SingularCovarianceError はデルタ法の分散射影が特異な共分散行列のため失敗した場合のエラーです。
type SingularCovarianceError struct {
	Op  string
	Dim int
}

func (e *SingularCovarianceError) Error() string {
	return fmt.Sprintf("ggeffects: %s: covariance matrix (%d x %d) is singular or not positive definite", e.Op, e.Dim, e.Dim)
}

// MarshalZerologObject はzerologのイベントに構造化されたエラー情報を追加します。
func (e *SingularCovarianceError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("operation", e.Op).
		Int("dimension", e.Dim).
		Str("type", "SingularCovarianceError")
}

// NewSingularCovarianceError は新しいSingularCovarianceErrorを作成し、スタックトレースを付与します。
func NewSingularCovarianceError(op string, dim int) error {
	err := &SingularCovarianceError{Op: op, Dim: dim}
	return errors.WithStack(err)
}

// NotFittedError はモデルが未学習の状態で予測系メソッドを呼び出した場合のエラーです。
type NotFittedError struct {
	ModelName string
	Method    string
}

func (e *NotFittedError) Error() string {
	return fmt.Sprintf("ggeffects: %s: this model is not fitted yet. Call Fit() before using %s()", e.ModelName, e.Method)
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
	Axis     int // 0 for rows, 1 for columns/terms
}

func (e *DimensionError) Error() string {
	axisName := "terms"
	if e.Axis == 0 {
		axisName = "rows"
	}
	return fmt.Sprintf("ggeffects: %s: dimension mismatch on axis %d (%s). Expected %d, got %d", e.Op, e.Axis, axisName, e.Expected, e.Got)
}

// MarshalZerologObject はzerologのイベントに構造化されたエラー情報を追加します。
func (e *DimensionError) MarshalZerologObject(event *zerolog.Event) {
	axisName := "terms"
	if e.Axis == 0 {
		axisName = "rows"
	}
	event.Str("operation", e.Op).
		Int("expected", e.Expected).
		Int("got", e.Got).
		Int("axis", e.Axis).
		Str("axis_name", axisName).
		Str("type", "DimensionError")
}

// NewDimensionError は新しいDimensionErrorを作成し、スタックトレースを付与します。
func NewDimensionError(op string, expected, got, axis int) error {
	err := &DimensionError{Op: op, Expected: expected, Got: got, Axis: axis}
	return errors.WithStack(err)
}

// ValueError は引数の値が不適切または不正な場合に発生するエラーです。
// 例えば、信頼水準に1以上の値を渡した場合など。
type ValueError struct {
	Op      string
	Message string
}

func (e *ValueError) Error() string {
	return fmt.Sprintf("ggeffects: %s: %s", e.Op, e.Message)
}

// NewValueError は新しいValueErrorを作成し、スタックトレースを付与します。
func NewValueError(op, message string) error {
	err := &ValueError{Op: op, Message: message}
	return errors.WithStack(err)
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

	// ErrSingularMatrix は特異行列の場合のエラーです。
	ErrSingularMatrix = New("singular matrix")
)
