package daemon

import (
	"context"
	"net"
)

type Api interface {
	SetDaemon(d *Daemon)
	Serve(l net.Listener) error
	Shutdown(ctx context.Context) error
}
