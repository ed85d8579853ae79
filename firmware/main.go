//go:build tinygo

//go:generate tinygo flash -target=xiao

package main

import (
	"machine"
	"time"

	"github.com/itohio/goslider/pkg/slider"
	"github.com/itohio/goslider/pkg/smooth"
)

var (
	adcSlider machine.ADC
	uart      = machine.UART0
	startTime time.Time

	// Mode button debouncing
	buttonState   bool
	buttonPending bool
	buttonSince   uint32
)

func main() {
	PIN_SLIDER.Configure(machine.PinConfig{Mode: machine.PinInput})
	PIN_MODE.Configure(machine.PinConfig{Mode: machine.PinInputPullup})

	machine.InitADC()
	adcSlider = machine.ADC{Pin: PIN_SLIDER}
	adcSlider.Configure(machine.ADCConfig{})

	uart.Configure(machine.UARTConfig{
		BaudRate: UART_BAUD_RATE,
	})

	startTime = time.Now()

	cfg, err := smooth.NewConfig(SLIDER_RESOLUTION, RESPONSE_TIME, ticks, smooth.WithTickRate(TICK_RATE))
	if err != nil {
		halt("slider config", err)
	}

	var source slider.SampleSource = readSlider
	if SLIDER_INVERTED {
		source = slider.Inverted(source, SLIDER_RESOLUTION)
	}

	ctrl, err := slider.New(cfg, source, slider.TransmitterFunc(transmit), KEY_MODE)
	if err != nil {
		halt("slider init", err)
	}

	for {
		if pressed, changed := pollButton(); changed {
			// The mode key is always consumed here.
			if _, err := ctrl.ProcessKey(KEY_MODE, pressed); err != nil {
				println("mode frame:", err.Error())
			}
		}

		if err := ctrl.Scan(); err != nil {
			println("value frame:", err.Error())
		}

		time.Sleep(SCAN_INTERVAL_US * time.Microsecond)
	}
}

// ticks counts milliseconds since boot and wraps after ~49 days.
func ticks() uint32 {
	return uint32(time.Since(startTime) / time.Millisecond)
}

func readSlider() uint16 {
	return adcSlider.Get() >> ADC_SHIFT
}

func transmit(frame []byte) error {
	_, err := uart.Write(frame)
	return err
}

// pollButton reports debounced edges of the active-low mode button.
func pollButton() (pressed bool, changed bool) {
	raw := !PIN_MODE.Get()
	now := ticks()

	if raw == buttonState {
		buttonPending = false
		return buttonState, false
	}
	if !buttonPending {
		buttonPending = true
		buttonSince = now
		return buttonState, false
	}
	if now-buttonSince < DEBOUNCE_MS {
		return buttonState, false
	}

	buttonPending = false
	buttonState = raw
	return buttonState, true
}

func halt(what string, err error) {
	for {
		println(what+":", err.Error())
		time.Sleep(time.Second)
	}
}
