package internalerr

import "errors"

// Sentinel errors for common cases
var (
	ErrNoAlphabet         = errors.New("alphabet not set")
	ErrUnknownItem        = errors.New("item not in translation")
	ErrUnknownCountPolicy = errors.New("unknown count policy")
	ErrNotTranslated      = errors.New("alphabet has no translation")
	ErrFormat             = errors.New("malformed alphabet file")
	ErrLabelRange         = errors.New("label does not fit in one byte")
	ErrNotFound           = errors.New("not found")
	ErrInvalidConfig      = errors.New("invalid configuration")
	ErrRemote             = errors.New("remote annotator failed")
)
