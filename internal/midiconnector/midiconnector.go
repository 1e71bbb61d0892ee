package midiconnector

import (
	"fmt"
	"log"
	"strings"
	"sync"

	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"
	_ "gitlab.com/gomidi/midi/v2/drivers/rtmididrv"
)

// System realtime bytes the sequencer emits. Clock goes out every pulse at
// 24 PPQN; Start/Stop frame the transport.
const (
	msgClock = 0xF8
	msgStart = 0xFA
	msgStop  = 0xFC
)

var mutex sync.Mutex

var devicesOpen map[string]drivers.Out

func init() {
	devicesOpen = make(map[string]drivers.Out)
}

// Device is a handle on one output port. Sends on a device that is not open
// are silent no-ops; send errors are logged and swallowed so a flaky port
// never stalls the pulse loop.
type Device struct {
	name string
	num  int
}

func filterName(name string) (foundName string, foundNum int, err error) {
	names := Devices()

	// Truncate name to first 3 words
	words := strings.Fields(name)
	if len(words) > 3 {
		words = words[:3]
	}
	truncatedName := strings.Join(words, " ")

	// First try exact match with truncated name
	for i, n := range names {
		if strings.EqualFold(n, truncatedName) {
			foundName = n
			foundNum = i
			return
		}
	}

	// Then try prefix match with truncated name
	for i, n := range names {
		if strings.HasPrefix(strings.ToLower(n), strings.ToLower(truncatedName)) {
			foundName = n
			foundNum = i
			return
		}
	}

	// Finally try contains match for backward compatibility
	for i, n := range names {
		if strings.Contains(strings.ToLower(n), strings.ToLower(truncatedName)) {
			foundName = n
			foundNum = i
			return
		}
	}

	err = fmt.Errorf("could not find device with name %s", truncatedName)
	return
}

func New(name string) (*Device, error) {
	var d Device
	var err error
	d.name, d.num, err = filterName(name)
	return &d, err
}

func (d *Device) Name() string { return d.name }

func Close() {
	mutex.Lock()
	defer mutex.Unlock()
	for _, out := range devicesOpen {
		out.Close()
	}
}

func (d *Device) Open() (err error) {
	mutex.Lock()
	defer mutex.Unlock()
	if _, ok := devicesOpen[d.name]; ok {
		return
	}
	out, err := midi.FindOutPort(d.name)
	if err == nil {
		devicesOpen[d.name] = out
		err = out.Open()
	}
	return
}

func (d *Device) Close() (err error) {
	mutex.Lock()
	defer mutex.Unlock()
	if out, ok := devicesOpen[d.name]; ok {
		err = out.Close()
		delete(devicesOpen, d.name)
	}
	return
}

// Send writes raw bytes to the open port.
func (d *Device) Send(bytes []byte) (err error) {
	mutex.Lock()
	defer mutex.Unlock()
	if out, ok := devicesOpen[d.name]; ok {
		err = out.Send(bytes)
		if err != nil {
			log.Printf("MIDI send error for device %s: %v", d.name, err)
		}
	}
	return
}

// Clock emits one timing clock byte.
func (d *Device) Clock() error { return d.Send([]byte{msgClock}) }

// Start emits a transport start byte.
func (d *Device) Start() error { return d.Send([]byte{msgStart}) }

// Stop emits a transport stop byte.
func (d *Device) Stop() error { return d.Send([]byte{msgStop}) }

func Devices() (devices []string) {
	outs := midi.GetOutPorts()
	for _, out := range outs {
		devices = append(devices, out.String())
	}
	return
}
