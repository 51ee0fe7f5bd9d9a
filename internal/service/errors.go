package service

import "fmt"

const (
	CodeNotFound         = "NOT_FOUND"
	CodeValidation       = "VALIDATION_ERROR"
	CodeNotEditable      = "NOT_EDITABLE"
	CodeReservedIdentity = "RESERVED_IDENTITY"
	CodeStoreUnavailable = "STORE_UNAVAILABLE"
)

type BusinessError struct {
	Code    string
	Message string
	Details map[string]any
	Err     error
}

type Detail struct {
	Key     string
	Payload any
}

func (b *BusinessError) Error() string {
	if b.Err != nil {
		return fmt.Sprintf("[%s] %s: %s", b.Code, b.Message, b.Err.Error())
	}
	return fmt.Sprintf("[%s] %s", b.Code, b.Message)
}

func (b *BusinessError) Unwrap() error {
	return b.Err
}

func ToDetail(key string, payload any) Detail {
	return Detail{
		Key:     key,
		Payload: payload,
	}
}

func NewBusinessError(code string, message string, details ...Detail) *BusinessError {
	busErr := &BusinessError{
		Code:    code,
		Message: message,
		Details: make(map[string]any),
	}

	for _, detail := range details {
		busErr.Details[detail.Key] = detail.Payload
	}
	return busErr
}

func NewNotFound(resource string, id string) *BusinessError {
	return NewBusinessError(CodeNotFound,
		fmt.Sprintf("%s %s не найден(а)", resource, id),
		ToDetail("resource", resource),
		ToDetail("id", id),
	)
}

func NewValidationError(field, reason string) *BusinessError {
	return NewBusinessError(CodeValidation,
		fmt.Sprintf("Неверное значение поля '%s': %s", field, reason),
		ToDetail("field", field),
		ToDetail("reason", reason),
	)
}

func NewNotEditable(id string) *BusinessError {
	return NewBusinessError(CodeNotEditable,
		fmt.Sprintf("задачу %s может изменять только её владелец", id),
		ToDetail("id", id),
	)
}

func NewReservedIdentity(identity string) *BusinessError {
	return NewBusinessError(CodeReservedIdentity,
		fmt.Sprintf("идентификатор %q зарезервирован", identity),
		ToDetail("identity", identity),
	)
}

func NewStoreUnavailable(operation string, err error) *BusinessError {
	busErr := NewBusinessError(CodeStoreUnavailable,
		"хранилище недоступно",
		ToDetail("operation", operation),
	)
	busErr.Err = err
	return busErr
}
