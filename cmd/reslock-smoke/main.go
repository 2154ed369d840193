package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/testforge/reslock/v1/conflict"
	"github.com/testforge/reslock/v1/coordinator"
	"github.com/testforge/reslock/v1/eventbus"
	"github.com/testforge/reslock/v1/metrics"
	"github.com/testforge/reslock/v1/presets"
	"github.com/testforge/reslock/v1/task"
	"github.com/testforge/reslock/v1/watch"
)

func main() {
	mode := flag.String("mode", "memory", "memory or redis")
	redisAddr := flag.String("redis-addr", "localhost:6379", "Redis address")
	workers := flag.Int("workers", 4, "Concurrent workers")
	taskCount := flag.Int("tasks", 32, "Tasks per worker")
	resources := flag.Int("resources", 8, "Size of the shared resource pool")
	verbose := flag.Bool("verbose", false, "Log every acquire and release")
	listen := flag.String("listen", ":2113", "HTTP address for /metrics and /watch")
	flag.Parse()

	ctx := context.Background()
	bus := eventbus.NewInMemoryBus()
	cfg := coordinator.Config{Verbose: *verbose, Bus: bus}

	var c *coordinator.Coordinator
	if *mode == "redis" {
		c = presets.NewRedis(presets.RedisOptions{Addr: *redisAddr}, cfg)
	} else {
		c = presets.NewStandalone(cfg)
	}
	if err := c.Init(ctx); err != nil {
		log.Fatal(err)
	}

	// Pre-flight: show which resources the batch will fight over.
	batch := makeBatch(*workers, *taskCount, *resources)
	for _, cf := range conflict.List(batch) {
		log.Printf("contended resource %s claimed by %v", cf.Resource, cf.TaskIDs)
	}

	reg := metrics.NewRegistry()
	metrics.RegisterCoreMetrics(reg)
	http.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	http.HandleFunc("/watch", watch.WebSocketHandler(bus))
	http.HandleFunc("/watch/sse", watch.SSEHandler(bus))
	go func() {
		log.Printf("Smoke test node listening on %s (mode: %s)...", *listen, *mode)
		log.Fatal(http.ListenAndServe(*listen, nil))
	}()

	start := time.Now()
	g, gctx := errgroup.WithContext(ctx)
	for w := 0; w < *workers; w++ {
		tasks := batch[w**taskCount : (w+1)**taskCount]
		g.Go(func() error {
			for _, t := range tasks {
				if ok, err := c.AcquireEventually(gctx, t); err != nil || !ok {
					return fmt.Errorf("acquire %s: %w", t.ID, err)
				}
				time.Sleep(time.Millisecond)
				if err := c.Release(gctx, t); err != nil {
					return fmt.Errorf("release %s: %w", t.ID, err)
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		log.Fatal(err)
	}
	if err := c.Shutdown(ctx); err != nil {
		log.Fatal(err)
	}
	log.Printf("ran %d tasks across %d workers in %s", len(batch), *workers, time.Since(start))
}

// makeBatch builds workers*perWorker tasks, each claiming two resources
// from a pool small enough to force contention.
func makeBatch(workers, perWorker, pool int) []task.Task {
	batch := make([]task.Task, 0, workers*perWorker)
	for w := 0; w < workers; w++ {
		for i := 0; i < perWorker; i++ {
			n := w*perWorker + i
			batch = append(batch, task.New(
				fmt.Sprintf("task-%d-%d", w, i),
				fmt.Sprintf("res-%d", n%pool),
				fmt.Sprintf("res-%d", (n+1)%pool),
			))
		}
	}
	return batch
}
