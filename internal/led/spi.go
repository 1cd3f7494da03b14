package led

import (
	"image"
	"image/color"

	"github.com/pkg/errors"
	"periph.io/x/conn/v3/display"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
	"periph.io/x/conn/v3/spi/spireg"
	"periph.io/x/devices/v3/nrzled"
	"periph.io/x/extra/devices/screen"
	"periph.io/x/host/v3"
)

// WS281x bit stream timing: 800 kHz refresh, 3 SPI bits per data bit,
// plus headroom.
const nrzFreq = 2500 * physic.KiloHertz

// NRZ drives WS281x-class strips over SPI via periph.io. When no SPI
// port is available it falls back to an ANSI terminal renderer, which
// keeps the whole pipeline runnable on a dev machine.
type NRZ struct {
	drawer display.Drawer
	port   spi.PortCloser
	img    *image.NRGBA
	count  int

	// OnSPI reports whether real hardware is attached.
	OnSPI bool
}

var _ Driver = (*NRZ)(nil)

// NewNRZ opens the first available SPI port for count pixels.
func NewNRZ(count int) (*NRZ, error) {
	if count <= 0 {
		return nil, errors.Errorf("led: invalid pixel count %d", count)
	}
	if _, err := host.Init(); err != nil {
		return nil, errors.Wrap(err, "led: host init")
	}
	d := &NRZ{
		count: count,
		img:   image.NewNRGBA(image.Rect(0, 0, count, 1)),
	}
	port, err := spireg.Open("")
	if err != nil {
		d.drawer = screen.New(count)
		return d, nil
	}
	dev, err := nrzled.NewSPI(port, &nrzled.Opts{
		NumPixels: count,
		Channels:  3,
		Freq:      nrzFreq,
	})
	if err != nil {
		_ = port.Close()
		return nil, errors.Wrap(err, "led: nrzled init")
	}
	d.port = port
	d.drawer = dev
	d.OnSPI = true
	return d, nil
}

// NewNRZFromPort builds the driver over an explicit SPI port. Tests pass
// a recorder port here.
func NewNRZFromPort(port spi.Port, count int) (*NRZ, error) {
	if count <= 0 {
		return nil, errors.Errorf("led: invalid pixel count %d", count)
	}
	dev, err := nrzled.NewSPI(port, &nrzled.Opts{
		NumPixels: count,
		Channels:  3,
		Freq:      nrzFreq,
	})
	if err != nil {
		return nil, errors.Wrap(err, "led: nrzled init")
	}
	return &NRZ{
		drawer: dev,
		img:    image.NewNRGBA(image.Rect(0, 0, count, 1)),
		count:  count,
		OnSPI:  true,
	}, nil
}

// Write implements Driver.
func (d *NRZ) Write(rgb []byte) error {
	if len(rgb) != d.count*3 {
		return errors.Errorf("led: frame size %d, want %d", len(rgb), d.count*3)
	}
	for i := 0; i < d.count; i++ {
		d.img.SetNRGBA(i, 0, color.NRGBA{
			R: rgb[i*3+0],
			G: rgb[i*3+1],
			B: rgb[i*3+2],
			A: 0xFF,
		})
	}
	return errors.Wrap(d.drawer.Draw(d.drawer.Bounds(), d.img, image.Point{}), "led: draw")
}

// Close implements Driver.
func (d *NRZ) Close() error {
	if d.port != nil {
		return d.port.Close()
	}
	return nil
}
