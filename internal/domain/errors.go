package domain

import (
	"errors"
	"fmt"
)

// Kind classifies an error for callers; the transport maps it to a status code.
type Kind string

const (
	KindValidation    Kind = "validation"
	KindAuthorization Kind = "authorization"
	KindNotFound      Kind = "not_found"
	KindConflict      Kind = "conflict"
	KindState         Kind = "state"
)

// Error is a machine-readable domain failure.
type Error struct {
	Kind    Kind
	Code    string
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

// Is matches on Code so that sentinel values survive Errorf wrapping and
// detailed copies (see Detail) still compare equal to their sentinel.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// Detail returns a copy of e with a more specific message.
func (e *Error) Detail(format string, args ...any) *Error {
	return &Error{Kind: e.Kind, Code: e.Code, Message: fmt.Sprintf(format, args...)}
}

func newError(kind Kind, code, msg string) *Error {
	return &Error{Kind: kind, Code: code, Message: msg}
}

var (
	// ErrInvalidInput is the generic validation failure.
	ErrInvalidInput = newError(KindValidation, "InvalidInput", "invalid input")
	// ErrForbidden is returned when the caller's role or ownership does not allow the action.
	ErrForbidden = newError(KindAuthorization, "Forbidden", "not allowed")
	// ErrStudentBlocked is returned when a blocked student tries to enroll.
	ErrStudentBlocked = newError(KindAuthorization, "StudentBlocked", "student account is blocked")
	// ErrNotEnrolled is returned when a student acts on a course they are not enrolled in.
	ErrNotEnrolled = newError(KindAuthorization, "NotEnrolled", "student is not enrolled in this course")

	ErrCourseNotFound     = newError(KindNotFound, "CourseNotFound", "course not found")
	ErrStudentNotFound    = newError(KindNotFound, "StudentNotFound", "student not found")
	ErrSectionNotFound    = newError(KindNotFound, "SectionNotFound", "section not found")
	ErrLessonNotFound     = newError(KindNotFound, "LessonNotFound", "lesson not found")
	ErrQuizNotFound       = newError(KindNotFound, "QuizNotFound", "quiz not found")
	ErrAssignmentNotFound = newError(KindNotFound, "AssignmentNotFound", "assignment not found")
	ErrEnrollmentNotFound = newError(KindNotFound, "EnrollmentNotFound", "enrollment not found")
	ErrSubmissionNotFound = newError(KindNotFound, "SubmissionNotFound", "submission not found")
	ErrActivityNotFound   = newError(KindNotFound, "ActivityNotFound", "activity not found")
	ErrCertificateMissing = newError(KindNotFound, "CertificateNotFound", "certificate not found")
	ErrProgressNotFound   = newError(KindNotFound, "ProgressNotFound", "lesson progress not found")

	// ErrAlreadyEnrolled is returned when an Active or Completed enrollment exists for the pair.
	ErrAlreadyEnrolled = newError(KindConflict, "AlreadyEnrolled", "already enrolled in this course")

	// ErrCourseNotPublished is returned when enrolling into a course that is not Published.
	ErrCourseNotPublished = newError(KindState, "CourseNotPublished", "course is not published")
	// ErrNotCompleted is returned when a certificate is requested for an unfinished enrollment.
	ErrNotCompleted = newError(KindState, "NotCompleted", "enrollment is not completed")
	// ErrInvalidTransition is returned for enrollment transitions out of a terminal state.
	ErrInvalidTransition = newError(KindState, "InvalidTransition", "transition not allowed from current status")

	// ErrQuestionNotFound indicates a submitted question ID is not part of the quiz.
	ErrQuestionNotFound = newError(KindValidation, "QuestionNotFound", "question not found")
	// ErrOptionNotFound indicates a submitted option ID is not part of the question.
	ErrOptionNotFound = newError(KindValidation, "OptionNotFound", "option not found")
)

// KindOf returns the kind of the first domain error in err's chain, or "" if none.
func KindOf(err error) Kind {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return ""
}
