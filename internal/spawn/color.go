package spawn

import "math/rand"

var colorComponents = [4]string{"AA", "BB", "CC", "EE"}

// hostColor picks a terminal text color for a hostname. The generator
// is seeded from the sum of the hostname's bytes so repeated runs
// against the same host reproduce the same color.
func hostColor(hostname string) string {
	var sum int64
	for i := 0; i < len(hostname); i++ {
		sum += int64(hostname[i])
	}
	bits := rand.New(rand.NewSource(sum)).Intn(64)

	color := "\\#"
	for i := 0; i < 3; i++ {
		color += colorComponents[bits&3]
		bits >>= 2
	}
	return color
}
