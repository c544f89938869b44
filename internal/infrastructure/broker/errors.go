package broker

import (
	"errors"
	"fmt"

	"github.com/LavaJover/shvark-rebate-service/internal/domain"
)

type ErrorKind int

const (
	// KindNetwork covers transport failures, timeouts and unreadable responses.
	KindNetwork ErrorKind = iota + 1
	// KindRejected means the exchange answered with a non-success code.
	KindRejected
)

func (k ErrorKind) String() string {
	switch k {
	case KindNetwork:
		return "network"
	case KindRejected:
		return "rejected"
	}
	return "unknown"
}

type AdapterError struct {
	Exchange domain.Exchange
	Kind     ErrorKind
	Code     string
	Message  string
	Err      error
}

func (e *AdapterError) Error() string {
	switch {
	case e.Kind == KindRejected:
		return fmt.Sprintf("%s: request rejected (code=%s): %s", e.Exchange, e.Code, e.Message)
	case e.Err != nil:
		return fmt.Sprintf("%s: %s error: %v", e.Exchange, e.Kind, e.Err)
	}
	return fmt.Sprintf("%s: %s error: %s", e.Exchange, e.Kind, e.Message)
}

func (e *AdapterError) Unwrap() error {
	return e.Err
}

// IsKind reports whether err carries an AdapterError of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	var adapterErr *AdapterError
	if errors.As(err, &adapterErr) {
		return adapterErr.Kind == kind
	}
	return false
}

func networkError(exchange domain.Exchange, err error) *AdapterError {
	return &AdapterError{Exchange: exchange, Kind: KindNetwork, Err: err}
}

func rejectedError(exchange domain.Exchange, code, message string) *AdapterError {
	return &AdapterError{Exchange: exchange, Kind: KindRejected, Code: code, Message: message}
}
