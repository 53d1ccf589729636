package utils

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"syscall"
)

// WrapError wraps an error with additional context
func WrapError(err error, msg string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", msg, err)
}

// WrapErrorf wraps an error with formatted context
func WrapErrorf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}

// IsTimeoutError checks if an error is a timeout error
func IsTimeoutError(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, os.ErrDeadlineExceeded) {
		return true
	}

	errStr := strings.ToLower(err.Error())
	for _, indicator := range []string{"timeout", "timed out", "deadline exceeded"} {
		if strings.Contains(errStr, indicator) {
			return true
		}
	}

	return false
}

// IsFileNotFoundError checks if an error indicates a file not found
func IsFileNotFoundError(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, os.ErrNotExist) || errors.Is(err, syscall.ENOENT) {
		return true
	}

	errStr := strings.ToLower(err.Error())
	notFoundIndicators := []string{
		"no such file or directory",
		"file not found",
		"cannot find the file",
		"does not exist",
	}

	for _, indicator := range notFoundIndicators {
		if strings.Contains(errStr, indicator) {
			return true
		}
	}

	return false
}

// IsPermissionError checks if an error indicates a permission problem
func IsPermissionError(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, os.ErrPermission) {
		return true
	}

	if errors.Is(err, syscall.EACCES) || errors.Is(err, syscall.EPERM) {
		return true
	}

	errStr := strings.ToLower(err.Error())
	permissionIndicators := []string{
		"permission denied",
		"access denied",
		"operation not permitted",
	}

	for _, indicator := range permissionIndicators {
		if strings.Contains(errStr, indicator) {
			return true
		}
	}

	return false
}

// IsDiskFullError checks if an error indicates disk space issues
func IsDiskFullError(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, syscall.ENOSPC) {
		return true
	}

	errStr := strings.ToLower(err.Error())
	diskFullIndicators := []string{
		"no space left on device",
		"disk full",
		"not enough space",
	}

	for _, indicator := range diskFullIndicators {
		if strings.Contains(errStr, indicator) {
			return true
		}
	}

	return false
}

// IsExitError reports whether err came from an external command exiting non-zero
func IsExitError(err error) bool {
	var exitErr *exec.ExitError
	return errors.As(err, &exitErr)
}

// ClassifyError returns a short reason tag used to label failure logs
func ClassifyError(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, context.Canceled):
		return "canceled"
	case IsTimeoutError(err):
		return "timeout"
	case IsDiskFullError(err):
		return "disk_full"
	case IsPermissionError(err):
		return "permission"
	case IsFileNotFoundError(err):
		return "not_found"
	case IsExitError(err):
		return "codec_exit"
	default:
		return "unknown"
	}
}

// CombineErrors combines multiple errors into a single error
func CombineErrors(errs []error) error {
	validErrors := make([]error, 0, len(errs))
	for _, err := range errs {
		if err != nil {
			validErrors = append(validErrors, err)
		}
	}

	switch len(validErrors) {
	case 0:
		return nil
	case 1:
		return validErrors[0]
	}

	return errors.Join(validErrors...)
}
