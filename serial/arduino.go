package serial

import "time"

// ArduinoReadTimeout is the read-upon-available timeout profile used for the
// fixed Arduino serial baud profile required by OACSP devices.
const ArduinoReadTimeout = 250 * time.Millisecond

// OpenArduino opens the named device at the fixed Arduino profile the OACSP
// wire format assumes: 9600 bps, 8 data bits, no parity, one stop bit, DTR
// asserted, with both queues purged. It returns a Port whose Read blocks for
// at most ArduinoReadTimeout.
func OpenArduino(name string) (*Port, error) {
	opts := NewOptions().SetReadTimeout(ArduinoReadTimeout)
	p, err := Open(name, opts)
	if err != nil {
		return nil, err
	}
	attrs, err := p.GetAttr()
	if err != nil {
		p.Close()
		return nil, err
	}
	attrs.MakeRaw()
	attrs.SetSpeed(B9600)
	attrs.Cflag &= ^CSTOPB
	attrs.Cflag |= CLOCAL | CREAD
	if err := p.SetAttr(TCSANOW, attrs); err != nil {
		p.Close()
		return nil, err
	}
	if err := p.Flush(TCIOFLUSH); err != nil {
		p.Close()
		return nil, err
	}
	if err := p.EnableModemLines(TIOCM_DTR); err != nil {
		p.Close()
		return nil, err
	}
	return p, nil
}
