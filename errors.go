package drpm

import "errors"

// The decoder fails in one of a closed set of ways. I/O failures are not
// listed here: errors from the descriptor or the decompressor propagate
// as returned by the collaborator.
var (
	// ErrFormat reports bytes structurally inconsistent with the
	// DeltaRPM format: bad magic, bad version tag, out-of-range
	// lengths, truncated fields, failed bounds checks.
	ErrFormat = errors.New("drpm: invalid delta format")

	// ErrOverflow reports a declared size the host cannot hold.
	ErrOverflow = errors.New("drpm: size overflow")

	// ErrArgument reports invalid arguments from the caller.
	ErrArgument = errors.New("drpm: invalid argument")

	// ErrUnsupported reports a well-formed value this implementation
	// cannot handle, such as an unknown compression method.
	ErrUnsupported = errors.New("drpm: unsupported value")
)
