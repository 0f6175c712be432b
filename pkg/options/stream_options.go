package options

import (
	"time"

	"github.com/spf13/pflag"
)

var _ IOptions = (*StreamOptions)(nil)

// StreamOptions contains configuration for the WebSocket stream server
// (the ingest and observe surfaces).
type StreamOptions struct {
	// Addr is the server bind address.
	Addr string `json:"addr" mapstructure:"addr"`

	// SendBuffer is the per-observer outbound message buffer. When an
	// observer's buffer is full the connection is dropped rather than
	// allowed to stall the broadcast.
	SendBuffer int `json:"send-buffer" mapstructure:"send-buffer"`

	// WriteTimeout bounds a single WebSocket write to one observer.
	WriteTimeout time.Duration `json:"write-timeout" mapstructure:"write-timeout"`

	// PingInterval is the keepalive ping cadence on observe connections.
	PingInterval time.Duration `json:"ping-interval" mapstructure:"ping-interval"`
}

// NewStreamOptions creates a StreamOptions object with default parameters.
func NewStreamOptions() *StreamOptions {
	return &StreamOptions{
		Addr:         "0.0.0.0:8090",
		SendBuffer:   256,
		WriteTimeout: 10 * time.Second,
		PingInterval: 30 * time.Second,
	}
}

// Validate is used to parse and validate the parameters entered by the user at
// the command line when the program starts.
func (o *StreamOptions) Validate() []error {
	if o == nil {
		return nil
	}

	errors := []error{}

	if err := ValidateAddress(o.Addr); err != nil {
		errors = append(errors, err)
	}

	return errors
}

// AddFlags adds flags related to the stream server to the specified FlagSet.
func (o *StreamOptions) AddFlags(fs *pflag.FlagSet) {
	fs.StringVar(&o.Addr, "stream.addr", o.Addr, "Specify the WebSocket stream server bind address and port.")
	fs.IntVar(&o.SendBuffer, "stream.send-buffer", o.SendBuffer, "Per-observer outbound message buffer size.")
	fs.DurationVar(&o.WriteTimeout, "stream.write-timeout", o.WriteTimeout, "Timeout for a single write to an observer.")
	fs.DurationVar(&o.PingInterval, "stream.ping-interval", o.PingInterval, "Keepalive ping interval on observe connections.")
}
