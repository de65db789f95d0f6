package services

import "errors"

var (
	// ErrInvalidParticipants is returned for empty, equal or malformed member ids
	ErrInvalidParticipants = errors.New("invalid conversation participants")
	// ErrEmptyMessage is returned when message text is blank after trimming
	ErrEmptyMessage = errors.New("message text is empty")
	// ErrNotMember is returned when a user is not a participant of the conversation
	ErrNotMember = errors.New("user is not a member of this conversation")
	// ErrNotFound wraps missing records surfaced by services
	ErrNotFound = errors.New("not found")
	// ErrNoPushTarget is returned when the recipient has no registered device
	ErrNoPushTarget = errors.New("recipient has no push registration")
	// ErrSelfAction is returned when a user targets themselves with a social action
	ErrSelfAction = errors.New("cannot target yourself")
	ErrAlreadyFollowing = errors.New("already following this user")
	ErrNotFollowing     = errors.New("not following this user")
	// ErrForbidden is returned when the caller does not own the resource
	ErrForbidden = errors.New("forbidden")
)
