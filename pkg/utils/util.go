package utils

import "time"

func MsToDuration(ms int) time.Duration {
	return time.Duration(ms) * time.Millisecond
}

func SecToDuration(sec float64) time.Duration {
	return time.Duration(sec * float64(time.Second))
}
