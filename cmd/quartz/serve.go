package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/quartzui/quartz/backend/wsbackend"
	"github.com/quartzui/quartz/engine"
	"github.com/quartzui/quartz/part"
)

func serveCmd() *cobra.Command {
	var (
		addr      string
		sentryDSN string
		maxResume int
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the demo server",
		Long: `Serve mounts a demo counter component per websocket connection and
streams committed DOM patches to each peer. Prometheus metrics are
exposed at /metrics and a liveness probe at /healthz.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := wsbackend.ServerConfig{
				Address: addr,
				Metrics: wsbackend.NewMetrics(wsbackend.MetricsConfig{}),
				Tracer:  wsbackend.NewTracer(""),
			}
			if maxResume > 0 {
				cfg.StormBudget = &engine.StormBudgetConfig{
					MaxResumesPerFlush: maxResume,
					OnExceeded:         engine.BudgetModeThrottle,
				}
			}
			if sentryDSN != "" {
				reporter, err := wsbackend.NewSentryReporter(sentryDSN)
				if err != nil {
					return err
				}
				cfg.Reporter = reporter
			}

			server := wsbackend.NewServer(counterDemo, cfg)
			return server.ListenAndServe()
		},
	}

	cmd.Flags().StringVar(&addr, "addr", ":8420", "listen address")
	cmd.Flags().StringVar(&sentryDSN, "sentry-dsn", "", "Sentry DSN for render panic reporting")
	cmd.Flags().IntVar(&maxResume, "max-resumes", 0, "storm budget: max coroutine resumes per flush (0 = unlimited)")
	return cmd
}

// counterDemo is the component each connection mounts: a count, an
// increment button, and a passive effect logging each committed change.
func counterDemo(s *engine.RenderSession) any {
	count, setCount, _ := s.UseState(0)

	s.UseEffect(func() func() {
		fmt.Printf("count committed: %v\n", count)
		return nil
	}, []any{count})

	result, err := s.HTML(part.Part{},
		[]string{`<div class="counter"><p>Count: `, `</p><button @click="`, `">+1</button></div>`},
		count,
		func() { setCount(func(prev any) any { return prev.(int) + 1 }) },
	)
	if err != nil {
		panic(err)
	}
	return result
}
