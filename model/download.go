package model

// ResultKind tags a DownloadResult.
type ResultKind int

const (
	ResultSuccess ResultKind = iota + 1
	ResultFailure
)

// DownloadResult is either Success(payload) or Failure(message). The zero
// value is neither and reports OK() == false.
type DownloadResult struct {
	Kind    ResultKind
	Payload []byte
	Message string
}

// Success wraps a downloaded payload.
func Success(payload []byte) DownloadResult {
	return DownloadResult{Kind: ResultSuccess, Payload: payload}
}

// Failure wraps a diagnostic message.
func Failure(message string) DownloadResult {
	return DownloadResult{Kind: ResultFailure, Message: message}
}

// OK reports whether the result carries a payload.
func (r DownloadResult) OK() bool {
	return r.Kind == ResultSuccess
}
