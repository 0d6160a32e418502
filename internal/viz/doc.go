// Package viz draws a running engine in the terminal.
//
// [Canvas] is a braille raster (2x4 dots per character) with line and circle
// primitives. [Model] is a Bubble Tea program that steps an engine on every
// frame and shows the arena next to a stats panel with an energy chart.
// [Picker] is the preset menu that launches a Model.
//
// # Key Bindings
//
//	Space - Pause/Resume simulation
//	+ / - - Raise or lower the temperature by the configured factor
//	R     - Reseed the scenario
//	T     - Cycle color themes
//	?     - Show help overlay
//	Q     - Quit
package viz
