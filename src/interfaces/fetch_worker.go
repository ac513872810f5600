package interfaces

import (
	"context"
	"io"
)

// -----------------------------------------------------------------------------
// IFetchWorker is the contract for the external fetch process. One worker
// handles exactly one request: start it, hand it the request payload, then
// consume its two streams until it exits.
// -----------------------------------------------------------------------------

type IFetchWorker interface {

	// -----------------------------------------------------------------------------

	// Start launches the worker process.
	// ctx: controls the lifecycle (cancellation terminates the worker)
	Start(ctx context.Context) error

	// -----------------------------------------------------------------------------

	// WriteRequest sends the serialized request on the worker's input channel
	// and closes it, signalling that no further input follows.
	WriteRequest(payload []byte) error

	// -----------------------------------------------------------------------------

	// Diagnostics returns the worker's line-oriented side channel. It carries
	// progress markers, status markers and free-form log lines.
	Diagnostics() io.Reader

	// -----------------------------------------------------------------------------

	// Output returns the worker's primary output channel. Its content depends
	// on the request mode: a record stream or an artifact reference.
	Output() io.Reader

	// -----------------------------------------------------------------------------

	// Wait blocks until the process exits and returns its exit error, if any.
	Wait() error

	// -----------------------------------------------------------------------------

	// Terminate kills the process without waiting for it to finish.
	Terminate() error
}
