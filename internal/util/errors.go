package util

import "errors"

var (
	ErrPermissionDenied   = errors.New("permission denied")
	ErrCourseNotFound     = errors.New("course not found")
	ErrEnrollmentNotFound = errors.New("enrollment not found")
	ErrProgressNotFound   = errors.New("progress not found")
	ErrNodeNotFound       = errors.New("progress node not found")
	ErrProgressConflict   = errors.New("progress was modified concurrently")
	ErrLockNotAcquired    = errors.New("progress is being updated, try again")
)
