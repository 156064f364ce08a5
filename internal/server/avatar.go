package server

import "fmt"

// avatarColor derives a stable hex color from a username, so the same name
// renders with the same color everywhere without persisting anything.
func avatarColor(username string) string {
	var hash int32
	for _, r := range username {
		hash = int32(r) + (hash << 5) - hash
	}

	return fmt.Sprintf("#%06x", uint32(hash)&0xFFFFFF)
}
