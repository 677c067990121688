package queue

import "errors"

var (
	// ErrNoJob is returned by ClaimNext when the queue has no alive job.
	ErrNoJob = errors.New("no alive job in queue")

	// ErrJobNotFound is returned when a job id does not exist.
	ErrJobNotFound = errors.New("job not found")

	// ErrJobNotAlive is returned when mutating the payload of a job that
	// has already been claimed.
	ErrJobNotAlive = errors.New("job already claimed or executed")
)
