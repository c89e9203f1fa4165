package model

import "errors"

var (
	// ErrInvalidRequest marks malformed or missing input.
	ErrInvalidRequest = errors.New("invalid request")
	// ErrAlreadyPurchased is returned by checkout when the bundle is already owned.
	ErrAlreadyPurchased = errors.New("already purchased")
	// ErrInvalidSignature marks a webhook whose signature does not verify.
	ErrInvalidSignature = errors.New("invalid signature")
	// ErrMalformedEvent marks a verified event whose payload misses required fields.
	ErrMalformedEvent = errors.New("malformed event")
	// ErrNotEntitled is returned when the caller holds no purchase for the bundle.
	ErrNotEntitled = errors.New("not entitled")
	// ErrIssuance is returned when the object store refuses to sign a URL.
	ErrIssuance = errors.New("signed url issuance failed")
	// ErrStorageTimeout is returned when a storage call exceeds the caller's deadline.
	ErrStorageTimeout = errors.New("storage timeout")
	// ErrAlreadyExists is the insert-if-absent conflict outcome.
	ErrAlreadyExists = errors.New("already exists")
	// ErrNotFound is returned when a row does not exist.
	ErrNotFound = errors.New("not found")
	// ErrProcessorUnavailable is returned when the payment processor is not configured or is failing.
	ErrProcessorUnavailable = errors.New("payment processor unavailable")
	// ErrOutOfSequence is returned when an advance skips the current item.
	ErrOutOfSequence = errors.New("reveal out of sequence")
)
