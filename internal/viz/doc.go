// Package viz draws trajectories in the terminal.
//
// Bodies are projected onto the x/z plane and drawn on a Braille [Canvas].
// [Viewer] is a Bubble Tea program for stepping through a stored
// trajectory; [LiveRenderer] previews a rollout while it runs.
//
// # Key Bindings
//
//	Space       - Play/Pause
//	Left/Right  - Step one frame
//	[ ]         - Slower/Faster
//	Home/End    - Jump to start/end
//	T           - Cycle color themes
//	Q           - Quit
package viz
