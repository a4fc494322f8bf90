package input

const (
	WM_NULL        uint32 = 0x0000
	WM_PAINT       uint32 = 0x000F
	WM_ACTIVATEAPP uint32 = 0x001C
	WM_KEYDOWN     uint32 = 0x0100
	WM_KEYUP       uint32 = 0x0101
	WM_SYSKEYDOWN  uint32 = 0x0104
	WM_SYSKEYUP    uint32 = 0x0105
	WM_SYSCOMMAND  uint32 = 0x0112
)

const PM_REMOVE uint32 = 0x0001

// Passthrough returns the message the host may still see while the overlay
// owns input: window management messages survive, the rest become WM_NULL.
func Passthrough(msg uint32) uint32 {
	switch msg {
	case WM_SYSCOMMAND, WM_ACTIVATEAPP, WM_PAINT:
		return msg
	}
	return WM_NULL
}
