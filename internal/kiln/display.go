package kiln

import (
	"fmt"
	"time"
)

// Display texts shown on the operator UI.
const (
	DisplayIdle    = "Idle 💤"
	DisplayCooling = "Cooling ❄️"
)

func displayFiring(target float64) string {
	return fmt.Sprintf("Firing 🔥 @%.0f°C", target)
}

func displayHold(setpoint float64, elapsed, hold int) string {
	return fmt.Sprintf("Hold: %.0f°C-%d/%dmin", setpoint, elapsed, hold)
}

// FormatElapsed renders d as h:mm.
func FormatElapsed(d time.Duration) string {
	h := int(d.Hours())
	m := int(d.Minutes()) - h*60
	return fmt.Sprintf("%d:%02d", h, m)
}
