package util

// Delta returns curr - prev, or 0 if curr < prev (counter reset or wrap).
func Delta(prev, curr uint64) uint64 {
	if curr < prev {
		return 0
	}
	return curr - prev
}
