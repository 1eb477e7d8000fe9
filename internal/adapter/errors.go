package adapter

import (
	"context"
	"net/http"

	"github.com/cockroachdb/errors"

	"launchpad/internal/pkg/httpclient"
)

var (
	// ErrTransient marks failures worth retrying: rate limits, timeouts,
	// network trouble and 5xx responses.
	ErrTransient = errors.New("transient adapter failure")
	// ErrPermanent marks failures a retry cannot fix: bad credentials,
	// invalid payloads, policy rejections.
	ErrPermanent = errors.New("permanent adapter failure")
)

func Transient(err error) error {
	if err == nil {
		return nil
	}
	return errors.Mark(err, ErrTransient)
}

func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return errors.Mark(err, ErrPermanent)
}

// Permanentf builds a new permanent error.
func Permanentf(format string, args ...interface{}) error {
	return Permanent(errors.Newf(format, args...))
}

func IsPermanent(err error) bool {
	return errors.Is(err, ErrPermanent)
}

// IsTransient reports whether err should be retried. Untagged errors count as
// transient.
func IsTransient(err error) bool {
	return err != nil && !IsPermanent(err)
}

// Classify tags an error coming out of a transport call.
func Classify(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrPermanent) || errors.Is(err, ErrTransient) {
		return err
	}

	var se *httpclient.StatusError
	if errors.As(err, &se) {
		return classifyStatus(se.Code, err)
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return Transient(err)
	}
	return Transient(err)
}

func classifyStatus(code int, err error) error {
	switch {
	case code == http.StatusTooManyRequests,
		code == http.StatusRequestTimeout,
		code >= http.StatusInternalServerError:
		return Transient(err)
	case code >= http.StatusBadRequest:
		return Permanent(err)
	}
	return Transient(err)
}
