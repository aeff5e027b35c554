package remote

import "errors"

var (
	// ErrNetworkUnavailable marks transport-level failures: no
	// connection, DNS failure, timeout, or a gateway-class server
	// status. The operation that hit it is safe to retry verbatim.
	ErrNetworkUnavailable = errors.New("network unavailable")

	// ErrNotAuthenticated marks a rejected credential. Retrying
	// without a new sign-in cannot succeed.
	ErrNotAuthenticated = errors.New("not authenticated")
)
