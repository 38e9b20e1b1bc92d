// Package systemd integrates with systemd socket activation and readiness
// notifications. All functions are no-ops outside a systemd unit.
package systemd

import (
	"fmt"
	"net"

	"github.com/coreos/go-systemd/v22/activation"
	"github.com/coreos/go-systemd/v22/daemon"
)

// MetricsListener returns the socket-activated metrics listener, or nil when
// the process was not started with socket activation. The socket unit names
// the descriptor "metrics" with FileDescriptorName=.
func MetricsListener() (net.Listener, error) {
	fds := activation.Files(false)
	if len(fds) == 0 {
		return nil, nil
	}

	listenersMap, err := activation.ListenersWithNames()
	if err != nil {
		return nil, fmt.Errorf("failed to get systemd listeners: %w", err)
	}

	if lns, ok := listenersMap["metrics"]; ok && len(lns) > 0 {
		return lns[0], nil
	}
	return nil, nil
}

// NotifyReady tells systemd the service finished starting up.
func NotifyReady() error {
	_, err := daemon.SdNotify(false, daemon.SdNotifyReady)
	return err
}

// NotifyStopping tells systemd the service began shutting down.
func NotifyStopping() error {
	_, err := daemon.SdNotify(false, daemon.SdNotifyStopping)
	return err
}
