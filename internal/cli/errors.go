package cli

import (
	"errors"
	"fmt"
	"io"

	apperrors "tiltguard/internal/errors"
	"tiltguard/internal/validation"
)

// errTradeBlocked is returned by 'metrics check' when trading is not allowed.
var errTradeBlocked = errors.New("trade not allowed")

// ExitCode maps a command error to a process exit code.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, errTradeBlocked):
		return 2
	case apperrors.Is(err, apperrors.ErrInputValidation):
		return 3
	case apperrors.Is(err, apperrors.ErrUserNotFound), apperrors.Is(err, apperrors.ErrTradeNotFound):
		return 4
	default:
		return 1
	}
}

// PrintError writes a command error for humans, one line per rejected field.
func PrintError(w io.Writer, err error) {
	if errors.Is(err, errTradeBlocked) {
		return
	}

	var fieldErrs validation.FieldErrors
	if errors.As(err, &fieldErrs) {
		fmt.Fprintln(w, "Error: invalid input")
		for _, fe := range fieldErrs {
			fmt.Fprintf(w, "  - %s\n", fe.Message)
		}
		return
	}
	fmt.Fprintf(w, "Error: %v\n", err)
}
