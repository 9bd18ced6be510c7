package kernel

import (
	"errors"
	"fmt"
)

// Errno is the closed set of failure tags a syscall can return, spec §4.5/§7.
type Errno string

const (
	ESRCH  Errno = "ESRCH"  // no such process
	ENOSYS Errno = "ENOSYS" // unknown syscall
	EINVAL Errno = "EINVAL" // bad argument
	ENOENT Errno = "ENOENT" // target not found
)

// Sentinel errors each Errno unwraps to, so callers can use errors.Is
// without string-matching on Errno.
var (
	ErrNoSuchProcess   = errors.New("kernel: no such process")
	ErrUnknownSyscall  = errors.New("kernel: unknown syscall")
	ErrInvalidArgument = errors.New("kernel: invalid argument")
	ErrNotFound        = errors.New("kernel: target not found")
)

// SyscallError is the failure record every syscall returns in place of a
// result, per spec §4.5: "a failure record with an errno tag". Never
// fatal; the dispatcher always returns it as a value, never a panic.
type SyscallError struct {
	Errno   Errno
	Syscall string
	Msg     string
}

func (e *SyscallError) Error() string {
	return fmt.Sprintf("%s: %s (%s): %s", e.Syscall, e.Errno, e.sentinelName(), e.Msg)
}

func (e *SyscallError) sentinelName() string {
	switch e.Errno {
	case ESRCH:
		return "no such process"
	case ENOSYS:
		return "unknown syscall"
	case EINVAL:
		return "invalid argument"
	case ENOENT:
		return "not found"
	default:
		return "unknown errno"
	}
}

// Unwrap lets errors.Is(err, ErrNoSuchProcess) etc. work against a SyscallError.
func (e *SyscallError) Unwrap() error {
	switch e.Errno {
	case ESRCH:
		return ErrNoSuchProcess
	case ENOSYS:
		return ErrUnknownSyscall
	case EINVAL:
		return ErrInvalidArgument
	case ENOENT:
		return ErrNotFound
	default:
		return nil
	}
}

func newErr(syscall string, errno Errno, msg string) *SyscallError {
	return &SyscallError{Syscall: syscall, Errno: errno, Msg: msg}
}
