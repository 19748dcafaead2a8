package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

// Error codes, stable across releases so clients can branch on them.
const (
	CodeSyntax           = "SYNTAX_ERROR"
	CodeInput            = "INPUT_ERROR"
	CodePermissionDenied = "PERMISSION_DENIED"
	CodePackageNotFound  = "PACKAGE_NOT_FOUND"
	CodeVersionNotFound  = "VERSION_NOT_FOUND"
	CodeKindMismatch     = "KIND_MISMATCH"
	CodeInternal         = "INTERNAL_ERROR"
)

// ============================================
// SYNTAX ERROR
// ============================================

// SyntaxError - input package hoặc s-expression sai cú pháp
type SyntaxError struct {
	Message string
	Err     error // lỗi gốc từ parser (optional)
}

func (e *SyntaxError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *SyntaxError) Unwrap() error { return e.Err }

// NewSyntaxError tạo SyntaxError với message format
func NewSyntaxError(format string, args ...any) *SyntaxError {
	return &SyntaxError{Message: fmt.Sprintf(format, args...)}
}

// WrapSyntaxError gắn context vào lỗi parser
func WrapSyntaxError(err error, format string, args ...any) *SyntaxError {
	return &SyntaxError{Message: fmt.Sprintf(format, args...), Err: err}
}

// ============================================
// INPUT ERROR
// ============================================

// InputError - cú pháp hợp lệ nhưng dữ liệu sai (user sửa được)
type InputError struct {
	Message string
}

func (e *InputError) Error() string { return e.Message }

func NewInputError(format string, args ...any) *InputError {
	return &InputError{Message: fmt.Sprintf(format, args...)}
}

// ============================================
// PERMISSIONS ERROR
// ============================================

// PermissionsError - user đã xác thực nhưng không có quyền trên package
type PermissionsError struct {
	User    string
	Package string
	Message string
}

func (e *PermissionsError) Error() string { return e.Message }

func NewPermissionsError(user, pkg string) *PermissionsError {
	return &PermissionsError{
		User:    user,
		Package: pkg,
		Message: fmt.Sprintf("User %s doesn't own package %s", user, pkg),
	}
}

// ============================================
// LOAD ERROR
// ============================================

// LoadReason phân biệt các trường hợp không load được package
type LoadReason int

const (
	ReasonPackageAbsent LoadReason = iota + 1
	ReasonVersionAbsent
	ReasonKindMismatch
)

// LoadError - resource được yêu cầu không tồn tại hoặc sai kind
type LoadError struct {
	Reason  LoadReason
	Message string
}

func (e *LoadError) Error() string { return e.Message }

// Code trả về error code theo reason
func (e *LoadError) Code() string {
	switch e.Reason {
	case ReasonPackageAbsent:
		return CodePackageNotFound
	case ReasonVersionAbsent:
		return CodeVersionNotFound
	case ReasonKindMismatch:
		return CodeKindMismatch
	}
	return CodeInternal
}

func NewLoadError(reason LoadReason, format string, args ...any) *LoadError {
	return &LoadError{Reason: reason, Message: fmt.Sprintf(format, args...)}
}

// ============================================
// ERROR CHECKING FUNCTIONS
// ============================================

func IsSyntaxError(err error) bool {
	var e *SyntaxError
	return errors.As(err, &e)
}

func IsInputError(err error) bool {
	var e *InputError
	return errors.As(err, &e)
}

func IsPermissionsError(err error) bool {
	var e *PermissionsError
	return errors.As(err, &e)
}

// AsLoadError trả về LoadError trong chain (nếu có)
func AsLoadError(err error) (*LoadError, bool) {
	var e *LoadError
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// IsLoadReason kiểm tra LoadError với reason cụ thể
func IsLoadReason(err error, reason LoadReason) bool {
	e, ok := AsLoadError(err)
	return ok && e.Reason == reason
}

// MapErrorToHTTP chuyển error sang (status, code, message) cho HTTP layer.
// Storage faults không expose chi tiết ra client.
func MapErrorToHTTP(err error) (int, string, string) {
	if err == nil {
		return http.StatusOK, "", ""
	}

	var (
		syntaxErr *SyntaxError
		inputErr  *InputError
		permErr   *PermissionsError
		loadErr   *LoadError
	)
	switch {
	case errors.As(err, &syntaxErr):
		return http.StatusBadRequest, CodeSyntax, syntaxErr.Error()
	case errors.As(err, &inputErr):
		return http.StatusBadRequest, CodeInput, inputErr.Error()
	case errors.As(err, &permErr):
		return http.StatusForbidden, CodePermissionDenied, permErr.Error()
	case errors.As(err, &loadErr):
		return http.StatusNotFound, loadErr.Code(), loadErr.Error()
	default:
		return http.StatusInternalServerError, CodeInternal, "Internal server error"
	}
}
