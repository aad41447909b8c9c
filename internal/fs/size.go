package fs

import "fmt"

var sizeUnits = [...]string{"B", "KB", "MB", "GB", "TB"}

// FormatSize renders a byte count in base-1024 units with two decimals.
// Zero (and negative input) renders as "0 B".
func FormatSize(bytes int64) string {
	if bytes <= 0 {
		return "0 B"
	}

	unit := 0
	threshold := int64(1024)
	for unit < len(sizeUnits)-1 && bytes >= threshold {
		unit++
		if unit < len(sizeUnits)-1 {
			threshold *= 1024
		}
	}

	value := float64(bytes)
	for i := 0; i < unit; i++ {
		value /= 1024
	}
	return fmt.Sprintf("%.2f %s", value, sizeUnits[unit])
}
