package service

import "errors"

// ErrNotFound is returned when the applicant or its compressed record does not exist.
var ErrNotFound = errors.New("applicant not found")

const (
	StatusShortlisted = "Shortlisted"
	StatusRejected    = "Rejected"
)
