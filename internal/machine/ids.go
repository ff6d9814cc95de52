package machine

import "strconv"

// sequentialIDs is the fallback generator when none is configured.
func sequentialIDs() IDGenerator {
	n := 0
	return func() string {
		n++
		return "t" + strconv.Itoa(n)
	}
}
