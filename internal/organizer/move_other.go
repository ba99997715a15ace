//go:build !unix

package organizer

func isCrossDevice(error) bool {
	return false
}
