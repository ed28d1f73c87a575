package domain

import "errors"

var (
	// ErrUnauthenticated is returned when an operation is invoked without a resolved user.
	ErrUnauthenticated = errors.New("unauthenticated")
	// ErrUserNotFound is returned when the user ID is unknown to the store.
	ErrUserNotFound = errors.New("user not found")
	// ErrUserExists is returned on signup with an ID or email that is already taken.
	ErrUserExists = errors.New("user already exists")
	// ErrTopicNotFound indicates the topic could not be found in the catalog.
	ErrTopicNotFound = errors.New("topic not found")
	// ErrNoTopics indicates the catalog is empty, so there is no daily topic.
	ErrNoTopics = errors.New("no topics available")
	// ErrInvalidInput is wrapped with detail for out-of-range scores and malformed requests.
	ErrInvalidInput = errors.New("invalid input")

	// ErrSessionNotFound is returned when a quiz session does not exist or belongs to another user.
	ErrSessionNotFound = errors.New("quiz session not found")
	// ErrSessionFinished is returned for any transition after the last question.
	ErrSessionFinished = errors.New("quiz session already finished")
	// ErrNotAnswering is returned when selecting or submitting while the answer is revealed.
	ErrNotAnswering = errors.New("question already answered")
	// ErrNotRevealed is returned when advancing before the answer was submitted.
	ErrNotRevealed = errors.New("answer not submitted yet")
	// ErrNoSelection is returned when submitting without a selected option.
	ErrNoSelection = errors.New("no option selected")
	// ErrSessionDisabled is returned when selection is blocked by the caller.
	ErrSessionDisabled = errors.New("quiz session disabled")
	// ErrOptionOutOfRange indicates the option index does not exist for the current question.
	ErrOptionOutOfRange = errors.New("option out of range")
)

// IsNotFound reports whether err is one of the not-found kinds.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrUserNotFound) ||
		errors.Is(err, ErrTopicNotFound) ||
		errors.Is(err, ErrNoTopics) ||
		errors.Is(err, ErrSessionNotFound)
}

// IsInvalidInput reports whether err is caused by caller input.
func IsInvalidInput(err error) bool {
	return errors.Is(err, ErrInvalidInput) || errors.Is(err, ErrOptionOutOfRange)
}

// IsConflict reports whether err is a state conflict (duplicate user or illegal transition).
func IsConflict(err error) bool {
	return errors.Is(err, ErrUserExists) ||
		errors.Is(err, ErrSessionFinished) ||
		errors.Is(err, ErrNotAnswering) ||
		errors.Is(err, ErrNotRevealed) ||
		errors.Is(err, ErrNoSelection) ||
		errors.Is(err, ErrSessionDisabled)
}
