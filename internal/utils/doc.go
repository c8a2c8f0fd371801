// Package utils provides the small set of low-level helpers this module's
// internals share: [DoPostStream] and [CloseWithLog] for the streaming HTTP
// POSTs every provider driver issues (internal/stream), and
// [ParseToolArguments] for recovering a tool call's JSON arguments from
// near-JSON model output (internal/toolloop).
package utils
