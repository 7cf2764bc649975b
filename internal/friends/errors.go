package friends

import "errors"

// Expected outcomes of graph operations. Handlers map these to HTTP statuses
// with errors.Is; none of them indicates a defect.
var (
	// ErrSelfRequest: a user tried to friend themselves.
	ErrSelfRequest = errors.New("cannot send a friend request to yourself")

	// ErrAlreadyFriends: a request was attempted between an already-connected pair.
	ErrAlreadyFriends = errors.New("already friends")

	// ErrDuplicatePendingRequest: a pending request from the same sender to the
	// same recipient already exists.
	ErrDuplicatePendingRequest = errors.New("friend request already sent")

	// ErrRequestNotFound: the request id does not exist under the acting user.
	ErrRequestNotFound = errors.New("friend request not found")

	// ErrInvalidTransition: the request is already accepted or rejected.
	ErrInvalidTransition = errors.New("friend request already handled")

	// ErrUserNotFound: the referenced user id does not resolve in the directory.
	ErrUserNotFound = errors.New("user not found")

	// ErrStorageUnavailable: transient store failure, safe to retry.
	ErrStorageUnavailable = errors.New("relationship store unavailable")
)
