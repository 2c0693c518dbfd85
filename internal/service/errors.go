package service

import (
	"errors"
	"fmt"

	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/noah-isme/eduwork-api/internal/observability"
)

// ErrorKind classifies lifecycle rule violations.
type ErrorKind string

const (
	KindInvalidWorkKind         ErrorKind = "InvalidWorkKind"
	KindWorkKindMismatch        ErrorKind = "WorkKindMismatch"
	KindDuplicateGroupName      ErrorKind = "DuplicateGroupName"
	KindEmptyGroup              ErrorKind = "EmptyGroup"
	KindStudentAlreadyGrouped   ErrorKind = "StudentAlreadyGrouped"
	KindMembershipEligibility   ErrorKind = "MembershipEligibility"
	KindGroupHasSubmission      ErrorKind = "GroupHasSubmission"
	KindEmptySubmission         ErrorKind = "EmptySubmission"
	KindDeadlinePassedPolicy    ErrorKind = "DeadlinePassedPolicy"
	KindAlreadyEvaluated        ErrorKind = "AlreadyEvaluated"
	KindOutOfRange              ErrorKind = "OutOfRange"
	KindEmptyComment            ErrorKind = "EmptyComment"
	KindMissingReason           ErrorKind = "MissingReason"
	KindNotAuthorized           ErrorKind = "NotAuthorized"
	KindInvalidWorkDefinition   ErrorKind = "InvalidWorkDefinition"
	KindWorkFrozen              ErrorKind = "WorkFrozen"
	KindAssignmentHasSubmission ErrorKind = "AssignmentHasSubmission"
	KindNotFound                ErrorKind = "NotFound"
	KindInvalidInput            ErrorKind = "InvalidInput"
)

// LifecycleError is a recoverable rule violation. Detail names the violated
// rule and is what clients see.
type LifecycleError struct {
	Kind   ErrorKind
	Detail string
}

func (e *LifecycleError) Error() string {
	return e.Detail
}

// Is matches any LifecycleError of the same kind, whatever its detail.
func (e *LifecycleError) Is(target error) bool {
	var other *LifecycleError
	if !errors.As(target, &other) {
		return false
	}
	return other.Kind == e.Kind
}

var (
	ErrInvalidWorkKind         = &LifecycleError{Kind: KindInvalidWorkKind, Detail: "groups can only be created for collective work"}
	ErrWorkKindMismatch        = &LifecycleError{Kind: KindWorkKindMismatch, Detail: "operation does not match the work kind"}
	ErrDuplicateGroupName      = &LifecycleError{Kind: KindDuplicateGroupName, Detail: "group name already used for this work"}
	ErrEmptyGroup              = &LifecycleError{Kind: KindEmptyGroup, Detail: "a group needs at least one member"}
	ErrStudentAlreadyGrouped   = &LifecycleError{Kind: KindStudentAlreadyGrouped, Detail: "student already belongs to a group for this work"}
	ErrMembershipEligibility   = &LifecycleError{Kind: KindMembershipEligibility, Detail: "student is not enrolled in the course space of this work"}
	ErrGroupHasSubmission      = &LifecycleError{Kind: KindGroupHasSubmission, Detail: "group already has a submission"}
	ErrEmptySubmission         = &LifecycleError{Kind: KindEmptySubmission, Detail: "submission needs content or a file"}
	ErrDeadlinePassedPolicy    = &LifecycleError{Kind: KindDeadlinePassedPolicy, Detail: "the deadline has passed and late submissions are not accepted"}
	ErrAlreadyEvaluated        = &LifecycleError{Kind: KindAlreadyEvaluated, Detail: "submission has already been evaluated"}
	ErrOutOfRange              = &LifecycleError{Kind: KindOutOfRange, Detail: "grade must be between 0 and 20"}
	ErrEmptyComment            = &LifecycleError{Kind: KindEmptyComment, Detail: "evaluation comment must not be empty"}
	ErrMissingReason           = &LifecycleError{Kind: KindMissingReason, Detail: "a correction reason is required"}
	ErrNotAuthorized           = &LifecycleError{Kind: KindNotAuthorized, Detail: "not allowed to perform this operation"}
	ErrInvalidWorkDefinition   = &LifecycleError{Kind: KindInvalidWorkDefinition, Detail: "invalid work definition"}
	ErrWorkFrozen              = &LifecycleError{Kind: KindWorkFrozen, Detail: "work already has submissions"}
	ErrAssignmentHasSubmission = &LifecycleError{Kind: KindAssignmentHasSubmission, Detail: "assignment already has a submission"}
	ErrNotFound                = &LifecycleError{Kind: KindNotFound, Detail: "resource not found"}
	ErrInvalidInput            = &LifecycleError{Kind: KindInvalidInput, Detail: "invalid input"}
)

func newError(kind ErrorKind, format string, args ...interface{}) *LifecycleError {
	return &LifecycleError{Kind: kind, Detail: fmt.Sprintf(format, args...)}
}

// KindOf returns the kind of a lifecycle error anywhere in err's chain.
func KindOf(err error) (ErrorKind, bool) {
	var lifecycleErr *LifecycleError
	if errors.As(err, &lifecycleErr) {
		return lifecycleErr.Kind, true
	}
	return "", false
}

// lookupError maps a missing row to NotFound and wraps anything else.
func lookupError(entity string, err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return newError(KindNotFound, "%s not found", entity)
	}
	return fmt.Errorf("load %s: %w", entity, err)
}

// fail records err on span and counts rule violations for operation.
func fail(span trace.Span, operation string, err error) error {
	span.RecordError(err)
	if kind, ok := KindOf(err); ok {
		span.SetStatus(codes.Error, string(kind))
		observability.LifecycleRejections().WithLabelValues(operation, string(kind)).Inc()
		return err
	}
	span.SetStatus(codes.Error, operation+"_failed")
	return err
}
