//go:build !linux

package radio

import (
	"github.com/go-errors/errors"
)

func linkUp(ifname string) (bool, error) {
	return false, errors.Errorf("link control is only supported on linux: %w", ErrRadioUnavailable)
}

func setLinkUp(ifname string, up bool) error {
	return errors.Errorf("link control is only supported on linux: %w", ErrRadioUnavailable)
}
