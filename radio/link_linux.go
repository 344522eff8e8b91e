package radio

import (
	"github.com/go-errors/errors"
	"golang.org/x/sys/unix"
)

func linkFlags(fd int, ifname string) (*unix.Ifreq, error) {
	ifr, err := unix.NewIfreq(ifname)
	if err != nil {
		return nil, errors.Errorf("invalid interface name %v: %v", ifname, err)
	}

	err = unix.IoctlIfreq(fd, unix.SIOCGIFFLAGS, ifr)
	if err != nil {
		return nil, errors.Errorf("could not get flags of %v: %v", ifname, err)
	}

	return ifr, nil
}

func controlSocket() (int, error) {
	fd, err := unix.Socket(unix.AF_INET, unix.SOCK_DGRAM|unix.SOCK_CLOEXEC, 0)
	if err != nil {
		return -1, errors.Errorf("could not open control socket: %v", err)
	}

	return fd, nil
}

// linkUp reports whether the interface is administratively up.
func linkUp(ifname string) (bool, error) {
	fd, err := controlSocket()
	if err != nil {
		return false, err
	}
	defer unix.Close(fd)

	ifr, err := linkFlags(fd, ifname)
	if err != nil {
		return false, err
	}

	return ifr.Uint16()&unix.IFF_UP != 0, nil
}

// setLinkUp raises or lowers the interface.
func setLinkUp(ifname string, up bool) error {
	fd, err := controlSocket()
	if err != nil {
		return err
	}
	defer unix.Close(fd)

	ifr, err := linkFlags(fd, ifname)
	if err != nil {
		return err
	}

	flags := ifr.Uint16()
	if up {
		flags |= unix.IFF_UP
	} else {
		flags &^= unix.IFF_UP
	}

	ifr.SetUint16(flags)

	err = unix.IoctlIfreq(fd, unix.SIOCSIFFLAGS, ifr)
	if err != nil {
		return errors.Errorf("could not set flags of %v: %v", ifname, err)
	}

	return nil
}
