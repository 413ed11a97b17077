package yourls

import "fmt"

// Result is the outcome of one shorten call. It is exactly one of
// Success, ServiceError, Overloaded, NetworkError or UnexpectedError.
type Result interface {
	isResult()
}

// Success carries the short URL issued by the service.
type Success struct {
	ShortURL string
}

// ServiceError means the service answered but refused the request.
// StatusCode is the HTTP status of the answer; 200 means the body
// itself reported a non-success status.
type ServiceError struct {
	StatusCode int
	Message    string
}

// Overloaded means the service answered 503.
type Overloaded struct{}

// NetworkError means no response was obtained.
type NetworkError struct {
	Err error
}

// UnexpectedError covers failures that fit no other variant, such as a
// success status without a short URL or an unparseable success body.
type UnexpectedError struct {
	Detail string
}

func (Success) isResult()         {}
func (ServiceError) isResult()    {}
func (Overloaded) isResult()      {}
func (NetworkError) isResult()    {}
func (UnexpectedError) isResult() {}

func (r ServiceError) String() string {
	return fmt.Sprintf("service error %d: %s", r.StatusCode, r.Message)
}

func (r NetworkError) String() string {
	if r.Err == nil {
		return "network error"
	}
	return "network error: " + r.Err.Error()
}

// Outcome returns a short label for logs and metrics.
func Outcome(r Result) string {
	switch r.(type) {
	case Success:
		return "success"
	case ServiceError:
		return "service_error"
	case Overloaded:
		return "overloaded"
	case NetworkError:
		return "network_error"
	case UnexpectedError:
		return "unexpected_error"
	default:
		return "unknown"
	}
}
