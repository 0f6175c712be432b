package options

import (
	"fmt"
	"net"

	"github.com/spf13/pflag"
)

// IOptions is implemented by every per-concern options group so the
// command layer can aggregate flag registration and validation.
type IOptions interface {
	// Validate checks the option values entered on the command line.
	Validate() []error

	// AddFlags registers the group's flags on the given FlagSet.
	AddFlags(fs *pflag.FlagSet)
}

// ValidateAddress checks that addr is a valid "host:port" listen address.
func ValidateAddress(addr string) error {
	if _, _, err := net.SplitHostPort(addr); err != nil {
		return fmt.Errorf("invalid listen address %q: %w", addr, err)
	}
	return nil
}
