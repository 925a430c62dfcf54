package errors

// ErrorCode identifies a class of failure across the toolkit.
type ErrorCode int

const (
	// General errors (1-99)
	ErrCodeUnknown ErrorCode = 1

	// Validation errors (100-199)
	ErrCodeInvalidInput         ErrorCode = 100
	ErrCodeInvalidParameter     ErrorCode = 101
	ErrCodeInvalidConfiguration ErrorCode = 102
	ErrCodeInvalidPeriod        ErrorCode = 103
	ErrCodeLengthMismatch       ErrorCode = 104
	ErrCodeNonFiniteValue       ErrorCode = 105
	ErrCodeInvalidCapital       ErrorCode = 106
	ErrCodeInvalidStopModel     ErrorCode = 107

	// Data/Resource errors (200-299)
	ErrCodeDataNotFound     ErrorCode = 200
	ErrCodeQueryFailed      ErrorCode = 201
	ErrCodeStoreUnavailable ErrorCode = 202
	ErrCodeInsufficientData ErrorCode = 203

	// Indicator errors (300-399)
	ErrCodeIndicatorNotFound      ErrorCode = 300
	ErrCodeIndicatorAlreadyExists ErrorCode = 301
	ErrCodeIndicatorCalculation   ErrorCode = 302

	// Strategy/Signal errors (400-499)
	ErrCodeStrategyNotFound  ErrorCode = 400
	ErrCodeInvalidSignalTree ErrorCode = 401
	ErrCodePrimitiveUnknown  ErrorCode = 402

	// Backtest errors (500-599)
	ErrCodeBacktestFailed  ErrorCode = 500
	ErrCodeResultNotFound  ErrorCode = 501
	ErrCodeResultWriteFail ErrorCode = 502

	// Optimizer errors (600-699)
	ErrCodeEmptySearchSpace ErrorCode = 600
	ErrCodeInvalidDimension ErrorCode = 601
	ErrCodeTrialFailed      ErrorCode = 602

	// Market data errors (700-799)
	ErrCodeFetchFailed      ErrorCode = 700
	ErrCodeParseFailed      ErrorCode = 701
	ErrCodeProviderUnknown  ErrorCode = 702
	ErrCodeRateLimited      ErrorCode = 703
	ErrCodeCacheWriteFailed ErrorCode = 704

	// API errors (800-899)
	ErrCodeBadRequest    ErrorCode = 800
	ErrCodeInternalError ErrorCode = 801
)
