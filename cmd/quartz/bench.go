package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/quartzui/quartz/backend/wsbackend"
	"github.com/quartzui/quartz/engine"
)

func benchCmd() *cobra.Command {
	var (
		updates int
		rows    int
	)

	cmd := &cobra.Command{
		Use:   "bench",
		Short: "Drive the scheduler with synthetic updates and report",
		Long: `Bench mounts a keyed list component against an in-memory document,
dispatches a stream of reducer updates, and reports flush throughput
and the number of patches the commits produced.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			doc := wsbackend.NewDocument()
			loop := wsbackend.NewLoop()
			backend := wsbackend.New(doc, loop, wsbackend.BackendConfig{})
			rt := engine.NewRuntime(backend, engine.RuntimeConfig{})

			var bump func(any)
			component := func(s *engine.RenderSession) any {
				gen, setGen, _ := s.UseState(0)
				bump = setGen

				items := make([]any, rows)
				for i := range items {
					items[i] = fmt.Sprintf("row-%d-%v", i, gen)
				}
				return engine.Repeat(items, func(item any) any { return item }, func(item any) any { return item })
			}

			engine.MountComponent(component, doc.MountPart(), rt)
			loop.RunUntilIdle()
			doc.Drain()

			started := time.Now()
			patches := 0
			for i := 0; i < updates; i++ {
				bump(func(prev any) any { return prev.(int) + 1 })
				loop.RunUntilIdle()
				patches += len(doc.Drain())
			}
			elapsed := time.Since(started)

			fmt.Printf("updates:  %d\n", updates)
			fmt.Printf("rows:     %d\n", rows)
			fmt.Printf("elapsed:  %s\n", elapsed)
			fmt.Printf("patches:  %d\n", patches)
			fmt.Printf("rate:     %.0f updates/s\n", float64(updates)/elapsed.Seconds())
			return nil
		},
	}

	cmd.Flags().IntVar(&updates, "updates", 1000, "reducer updates to dispatch")
	cmd.Flags().IntVar(&rows, "rows", 100, "keyed list rows per render")
	return cmd
}
