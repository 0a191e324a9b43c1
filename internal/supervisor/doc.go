// Finrec - Financial Product Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/finrec

/*
Package supervisor provides process supervision for Finrec using suture v4.

The tree organizes long-running services into three layers:

	RootSupervisor ("finrec")
	├── JobsSupervisor ("jobs-layer")
	│   ├── PipelineService (scheduled batches)
	│   └── TrainingService (if the learned scorer is used)
	├── MessagingSupervisor ("messaging-layer")
	│   └── EventLogService (if EVENTS_BACKEND=memory)
	└── APISupervisor ("api-layer")
	    └── HTTPServerService

Crashed services are restarted with backoff. Each layer counts failures
independently, so a batch that panics on bad input does not stop the API
from serving the last persisted run.

# Usage

	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger(), supervisor.TreeConfigFrom(cfg.Supervisor))
	if err != nil {
	    return err
	}
	tree.AddJobService(services.NewPipelineService(batch, services.PipelineServiceConfig{
	    RunOnStartup: cfg.Pipeline.RunOnStartup,
	    Interval:     cfg.Pipeline.Interval,
	}, logger))
	tree.AddAPIService(services.NewHTTPServerService(server, cfg.Supervisor.ShutdownTimeout))

	errCh := tree.ServeBackground(ctx)

Supervisor events (service start, panic, backoff) are logged through the
sutureslog hook, which the caller points at the zerolog-backed slog handler.

# See Also

  - github.com/thejerf/suture/v4
  - internal/supervisor/services: service wrappers
*/
package supervisor
