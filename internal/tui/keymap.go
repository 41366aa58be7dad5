package tui

// Key binding constants used in handleKey.
const (
	keyQuit   = "q"
	keyCtrlC  = "ctrl+c"
	keySpace  = " "
	keyRecord = "r"
	keyNew    = "n"
	keyCopy   = "c"
	keyUp     = "up"
	keyDown   = "down"
	keyJ      = "j"
	keyK      = "k"
)
