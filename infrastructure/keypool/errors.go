package keypool

import (
	"context"
	"errors"
	"io"
	"net"
	"syscall"
)

var (
	// ErrCredentialsExhausted is returned when no credential in the pool is active.
	ErrCredentialsExhausted = errors.New("all credentials exhausted")
	// ErrProxiesExhausted is returned when no proxy in the pool is active.
	ErrProxiesExhausted = errors.New("all proxies failed")
	// ErrDirectRouteFailed is returned when the proxy-less route fails at the
	// transport level. The route stays in rotation.
	ErrDirectRouteFailed = errors.New("direct route failed")

	// ErrQuotaExceeded marks a provider error that permanently disables the credential.
	ErrQuotaExceeded = errors.New("quota exceeded")
	// ErrRateLimited marks a transient provider throttle.
	ErrRateLimited = errors.New("rate limited")
	// ErrTransport marks a connection-level failure.
	ErrTransport = errors.New("transport failure")
)

// Class is the retry bucket an error falls into.
type Class int

const (
	ClassFatal Class = iota
	ClassQuota
	ClassRateLimit
	ClassTransport
)

func (c Class) String() string {
	switch c {
	case ClassQuota:
		return "quota"
	case ClassRateLimit:
		return "rate_limit"
	case ClassTransport:
		return "transport"
	default:
		return "fatal"
	}
}

// Classifier maps a work error onto a retry class.
type Classifier func(error) Class

// Classify is the default Classifier. Provider adapters wrap their errors with
// ErrQuotaExceeded, ErrRateLimited or ErrTransport; raw network errors coming
// straight from net/http are recognised as transport failures too.
func Classify(err error) Class {
	switch {
	case err == nil:
		return ClassFatal
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return ClassFatal
	case errors.Is(err, ErrQuotaExceeded):
		return ClassQuota
	case errors.Is(err, ErrRateLimited):
		return ClassRateLimit
	case errors.Is(err, ErrTransport), isTransportError(err):
		return ClassTransport
	}
	return ClassFatal
}

func isTransportError(err error) bool {
	if errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.EPIPE) ||
		errors.Is(err, io.ErrUnexpectedEOF) {
		return true
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return true
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return netErr.Timeout()
	}

	return false
}
