// Package worker consumes the task queue, dispatches each envelope to its
// operation handler, and drives tasks through their lifecycle.
package worker

import (
	"context"

	"github.com/routerops/routerops/internal/logging"
	"github.com/routerops/routerops/internal/restconf"
	"github.com/routerops/routerops/internal/router"
	"github.com/routerops/routerops/internal/task"
)

// DeviceClient is the RESTCONF surface the health handler needs.
// *restconf.Service satisfies it.
type DeviceClient interface {
	FetchHostname(ctx context.Context) (string, error)
	FetchInterfaces(ctx context.Context) ([]restconf.Interface, error)
	FetchStaticRoutes(ctx context.Context) ([]restconf.StaticRoute, error)
}

// ConfigPuller is the SSH surface the backup handler needs.
// *backup.Service satisfies it.
type ConfigPuller interface {
	GetRunningConfig(ctx context.Context) (string, error)
}

// DeviceClientFactory builds a RESTCONF client for one device using
// credentials resolved at execution time.
type DeviceClientFactory func(host, username, password string) DeviceClient

// ConfigPullerFactory builds an SSH config puller for one device.
type ConfigPullerFactory func(host, username, password string) ConfigPuller

// Deps bundles everything the handlers touch. Factories take the place of
// live clients so credentials rotate between enqueue and execution.
type Deps struct {
	Tasks     task.Store
	Routers   router.Store
	NewDevice DeviceClientFactory
	NewBackup ConfigPullerFactory
	Notify    NotifyFunc
	Log       *logging.Logger
}
