package radio

import (
	"bufio"
	"os"
	"strings"

	"github.com/go-errors/errors"
)

// readLeases reads a dnsmasq leases file and returns host names keyed by
// normalized link layer address. Lines look like
// "<expiry> <mac> <ip> <hostname> <client id>", unknown names are "*".
func readLeases(path string) (map[string]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Errorf("could not open leases %v: %v", path, err)
	}
	defer f.Close()

	return parseLeases(bufio.NewScanner(f))
}

func parseLeases(scanner *bufio.Scanner) (map[string]string, error) {
	names := make(map[string]string)

	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) < 4 || fields[3] == "*" {
			continue
		}

		addr, err := NormalizeAddress(fields[1])
		if err != nil {
			continue
		}

		names[addr] = fields[3]
	}

	if err := scanner.Err(); err != nil {
		return nil, errors.Errorf("could not read leases: %v", err)
	}

	return names, nil
}
