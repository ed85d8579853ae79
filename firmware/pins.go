//go:build tinygo

package main

import "machine"

const (
	// Scan configuration
	SCAN_INTERVAL_US = 1000 // Main loop period in microseconds
	TICK_RATE        = 1000 // Time source ticks per second (milliseconds)
	DEBOUNCE_MS      = 20   // Mode button must be stable this long

	// Slider configuration
	SLIDER_RESOLUTION = 1023 // 10-bit readings
	ADC_SHIFT         = 6    // machine.ADC.Get() is scaled to 16 bits
	RESPONSE_TIME     = 1.0  // Settling time constant in seconds
	SLIDER_INVERTED   = true // Potentiometer wired high-to-low

	// Key codes
	KEY_MODE = 0x27 // KC_0 position in the matrix, used as the mode button

	// Pins
	PIN_SLIDER = machine.A1
	PIN_MODE   = machine.D2

	// Serial configuration
	// 32 byte frames, UART 8N1: 320 bits per frame.
	// 115200 carries ~360 frames/sec; faster scans block in uart.Write.
	UART_BAUD_RATE = 115200
)
