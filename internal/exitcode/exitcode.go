package exitcode

import (
	"os"
	"strings"

	clierrors "github.com/felixgeelhaar/approvals/internal/errors"
)

// Exit codes for consistent error handling across the CLI
const (
	// Success indicates successful execution
	Success = 0

	// GeneralError indicates a general error condition
	GeneralError = 1

	// UsageError indicates invalid command usage or rejected input
	UsageError = 2

	// AuthError indicates an authentication or authorization failure
	AuthError = 5

	// NetworkError indicates the approval server could not be reached
	NetworkError = 6

	// Interrupted indicates the command was cancelled by SIGINT or SIGTERM
	Interrupted = 130
)

// Exit terminates the program with the given exit code
func Exit(code int) {
	os.Exit(code)
}

// ExitWithError exits with an appropriate code based on error type
func ExitWithError(err error) {
	if err == nil {
		Exit(Success)
		return
	}

	Exit(DetermineExitCode(err))
}

// DetermineExitCode maps an error to an exit code. Coded client errors are
// mapped by kind; anything else (mostly cobra usage errors) by message.
func DetermineExitCode(err error) int {
	if err == nil {
		return Success
	}

	if ce, ok := clierrors.As(err); ok {
		if ce.IsConnectivity() {
			return NetworkError
		}
		switch ce.Kind {
		case clierrors.KindAuth:
			return AuthError
		case clierrors.KindValidation:
			return UsageError
		case clierrors.KindAction, clierrors.KindFetch, clierrors.KindConfig, clierrors.KindStore:
			return GeneralError
		default:
			return GeneralError
		}
	}

	errMsg := strings.ToLower(err.Error())

	if strings.Contains(errMsg, "invalid flag") || strings.Contains(errMsg, "unknown command") ||
		strings.Contains(errMsg, "unknown flag") || strings.Contains(errMsg, "unknown shorthand flag") {
		return UsageError
	}
	if strings.Contains(errMsg, "required flag") || strings.Contains(errMsg, "accepts ") ||
		strings.Contains(errMsg, "requires at least") {
		return UsageError
	}

	return GeneralError
}

// GetExitCodeDescription returns a human-readable description of an exit code
func GetExitCodeDescription(code int) string {
	switch code {
	case Success:
		return "Success"
	case GeneralError:
		return "General error"
	case UsageError:
		return "Usage error (invalid flags, arguments or input)"
	case AuthError:
		return "Authentication error"
	case NetworkError:
		return "Network error"
	case Interrupted:
		return "Interrupted"
	default:
		return "Unknown error"
	}
}
