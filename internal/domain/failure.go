package domain

// FailureKind classifies why a completion call did not produce a response.
type FailureKind string

const (
	FailureUpstream  FailureKind = "upstream_error"
	FailureMalformed FailureKind = "malformed_response"
	FailureNetwork   FailureKind = "network_error"
	FailureTimeout   FailureKind = "timeout"
)
