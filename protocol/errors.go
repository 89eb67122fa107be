package protocol

import "github.com/pkg/errors"

var (
	ERR_INVALID_SYNTAX    = errors.New("invalid syntax")
	ERR_PAYLOAD_MALFORMED = errors.New("payload malformed")
	ERR_BUFFER_TOO_SMALL  = errors.New("buffer too small")
	ERR_UNSUPPORTED       = errors.New("unsupported")
)

// ErrF wraps a codec sentinel with a formatted detail
func ErrF(err error, format string, args ...interface{}) error {
	return errors.Wrapf(err, format, args...)
}
