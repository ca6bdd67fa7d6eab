package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"os"
	"runtime"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/plus3/slabstore"
)

// Position, Velocity, and Health are stand-ins for whatever component
// types a real caller registers; the stress test only cares about churn
// against the store, not what the values mean.
type Position struct{ X, Y float64 }
type Velocity struct{ DX, DY float64 }
type Health struct{ HP int }

func main() {
	duration := flag.Duration("duration", 10*time.Second, "total duration the stress test should run for")
	entityCount := flag.Int("entities", 10000, "initial number of entities to spawn")
	workers := flag.Int("workers", runtime.NumCPU(), "number of concurrent goroutines hammering the level")
	compressionRatio := flag.Float64("compression-ratio", slabstore.DefaultConfig().CompressionRatio, "compaction trigger ratio")
	capacityFloor := flag.Int("capacity-floor", slabstore.DefaultConfig().CapacityFloor, "compaction trigger capacity floor")
	flag.Parse()

	log.Println("Starting component store stress test...")

	level := slabstore.NewLevelWithConfig(slabstore.Config{
		CompressionRatio: *compressionRatio,
		CapacityFloor:    *capacityFloor,
	})
	position := slabstore.RegisterComponent[Position](level)
	velocity := slabstore.RegisterComponent[Velocity](level)
	health := slabstore.RegisterComponent[Health](level)

	keys := []slabstore.TypeKey{position, velocity, health}

	log.Printf("Populating level with %d entities...\n", *entityCount)
	entities := make([]slabstore.EntityId, 0, *entityCount)
	for i := 0; i < *entityCount; i++ {
		e := level.Spawn()
		entities = append(entities, e)
		n := rand.Intn(len(keys)) + 1
		for _, k := range rand.Perm(len(keys))[:n] {
			giveOne(level, e, keys[k])
		}
	}
	log.Println("Population complete.")

	report := &Report{
		Duration:   *duration,
		Entities:   *entityCount,
		Workers:    *workers,
		OpCounts:   make(map[string]int64, 4),
	}
	runtime.ReadMemStats(&report.MemStatsStart)

	ctx, cancel := context.WithTimeout(context.Background(), *duration)
	defer cancel()

	var gives, reads, mutates, sets, empties, errs int64
	var compactionSamples, peakConcurrentCompactions int64
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		ticker := time.NewTicker(5 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-gctx.Done():
				return nil
			case <-ticker.C:
				inFlight := level.CompactingTypes()
				if len(inFlight) == 0 {
					continue
				}
				atomic.AddInt64(&compactionSamples, 1)
				for {
					peak := atomic.LoadInt64(&peakConcurrentCompactions)
					if int64(len(inFlight)) <= peak {
						break
					}
					if atomic.CompareAndSwapInt64(&peakConcurrentCompactions, peak, int64(len(inFlight))) {
						break
					}
				}
			}
		}
	})
	for w := 0; w < *workers; w++ {
		g.Go(func() error {
			rng := rand.New(rand.NewSource(rand.Int63()))
			for {
				select {
				case <-gctx.Done():
					return nil
				default:
				}
				e := entities[rng.Intn(len(entities))]
				k := keys[rng.Intn(len(keys))]
				switch rng.Intn(5) {
				case 0:
					if giveOne(level, e, k) {
						atomic.AddInt64(&gives, 1)
					} else {
						atomic.AddInt64(&errs, 1)
					}
				case 1:
					if readOne(level, e, k) {
						atomic.AddInt64(&reads, 1)
					}
				case 2:
					mutateOne(level, e, k)
					atomic.AddInt64(&mutates, 1)
				case 3:
					if setOne(level, e, k) {
						atomic.AddInt64(&sets, 1)
					}
				case 4:
					if err := level.Empty(e, k); err == nil {
						atomic.AddInt64(&empties, 1)
					}
				}
			}
		})
	}
	startTime := time.Now()
	if err := g.Wait(); err != nil {
		log.Printf("worker returned error: %v", err)
	}
	report.TotalTime = time.Since(startTime)
	runtime.ReadMemStats(&report.MemStatsEnd)

	report.OpCounts["give"] = atomic.LoadInt64(&gives)
	report.OpCounts["read"] = atomic.LoadInt64(&reads)
	report.OpCounts["mutate"] = atomic.LoadInt64(&mutates)
	report.OpCounts["set"] = atomic.LoadInt64(&sets)
	report.OpCounts["empty"] = atomic.LoadInt64(&empties)
	report.OpCounts["rejected"] = atomic.LoadInt64(&errs)
	report.CompactionSamples = atomic.LoadInt64(&compactionSamples)
	report.PeakConcurrentCompactions = atomic.LoadInt64(&peakConcurrentCompactions)

	for _, k := range keys {
		report.FinalCapacity += level.Capacity(k)
		report.FinalLen += level.Len(k)
	}

	log.Println("Stress test finished.")
	fmt.Println("\n--- Component Store Stress Report ---")
	if err := report.Generate(os.Stdout); err != nil {
		log.Fatalf("failed to generate report: %v", err)
	}
	fmt.Println("--- End of Report ---")
}

func giveOne(level *slabstore.Level, e slabstore.EntityId, k slabstore.TypeKey) bool {
	var err error
	switch k {
	case keyOf[Position](level):
		err = slabstore.Give(level, e, k, Position{X: rand.Float64(), Y: rand.Float64()})
	case keyOf[Velocity](level):
		err = slabstore.Give(level, e, k, Velocity{DX: rand.Float64(), DY: rand.Float64()})
	default:
		err = slabstore.Give(level, e, k, Health{HP: rand.Intn(100)})
	}
	return err == nil
}

func readOne(level *slabstore.Level, e slabstore.EntityId, k slabstore.TypeKey) bool {
	var err error
	switch k {
	case keyOf[Position](level):
		_, err = slabstore.Read[Position](level, e, k)
	case keyOf[Velocity](level):
		_, err = slabstore.Read[Velocity](level, e, k)
	default:
		_, err = slabstore.Read[Health](level, e, k)
	}
	return err == nil
}

func setOne(level *slabstore.Level, e slabstore.EntityId, k slabstore.TypeKey) bool {
	var err error
	switch k {
	case keyOf[Position](level):
		err = slabstore.Set(level, e, k, Position{X: rand.Float64(), Y: rand.Float64()})
	case keyOf[Velocity](level):
		err = slabstore.Set(level, e, k, Velocity{DX: rand.Float64(), DY: rand.Float64()})
	default:
		err = slabstore.Set(level, e, k, Health{HP: rand.Intn(100)})
	}
	return err == nil
}

func mutateOne(level *slabstore.Level, e slabstore.EntityId, k slabstore.TypeKey) {
	switch k {
	case keyOf[Position](level):
		_ = slabstore.Mutate(level, e, k, func(p *Position) { p.X++ })
	case keyOf[Velocity](level):
		_ = slabstore.Mutate(level, e, k, func(v *Velocity) { v.DX++ })
	default:
		_ = slabstore.Mutate(level, e, k, func(h *Health) { h.HP++ })
	}
}

// keyOf re-derives the TypeKey for T against level without needing a
// closure variable captured from main — RegisterComponent is idempotent,
// so calling it again here just returns the same key.
func keyOf[T any](level *slabstore.Level) slabstore.TypeKey {
	return slabstore.RegisterComponent[T](level)
}
