package main

import (
	"context"
	"fmt"
	"os"
	"sync/atomic"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/safing/occbase/database"
	"github.com/safing/occbase/database/occ"
	"github.com/safing/occbase/database/record"
	"github.com/safing/occbase/metrics"
	"github.com/safing/occbase/utils"
)

var (
	raceWriters     int
	raceIncrements  int
	raceMaxAttempts int
	raceDelay       time.Duration
	racePrintStats  bool
)

var raceCmd = &cobra.Command{
	Use:   "race",
	Short: "Let concurrent writers increment one counter",
	Long: `Race inserts a counter row and lets concurrent writers increment it
through conditional updates. Writers that lose a race reload the row and try
again, up to the attempt budget. Without lost increments, the final value
equals writers * increments.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDatabase()
		if err != nil {
			return err
		}
		defer func() {
			_ = database.Shutdown()
		}()

		return runRace(cmd.Context(), db)
	},
}

func init() {
	rootCmd.AddCommand(raceCmd)
	raceCmd.Flags().IntVar(&raceWriters, "writers", 4, "number of concurrent writers")
	raceCmd.Flags().IntVar(&raceIncrements, "increments", 25, "increments per writer")
	raceCmd.Flags().IntVar(&raceMaxAttempts, "max-attempts", 0, "attempts per increment, defaults to the occ/retry/maxAttempts config option")
	raceCmd.Flags().DurationVar(&raceDelay, "delay", time.Millisecond, "pause between attempts")
	raceCmd.Flags().BoolVar(&racePrintStats, "metrics", false, "print metrics when done")
}

func increment(r *record.Record) (map[string]interface{}, error) {
	value, _ := r.Get("value")
	n, ok := value.(int64)
	if !ok {
		return nil, fmt.Errorf("counter value %s is not an integer", utils.TrimForDisplay(fmt.Sprint(value), 20))
	}
	return map[string]interface{}{"value": n + 1}, nil
}

func runRace(ctx context.Context, db *database.Interface) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if _, err := db.RegisterTable(ctx, "counters", "id", "value"); err != nil {
		return err
	}
	key := database.NewKey()
	if _, err := db.Insert(ctx, "counters", key, map[string]interface{}{"value": 0}); err != nil {
		return err
	}

	rw := db.RetryingWriter(&occ.RetryOptions{
		MaxAttempts: raceMaxAttempts,
		Delay:       raceDelay,
	})

	var (
		applied   int64
		exhausted int64
		attempts  int64
	)
	start := time.Now()
	group, ctx := errgroup.WithContext(ctx)
	for i := 0; i < raceWriters; i++ {
		group.Go(func() error {
			r, err := db.Load(ctx, "counters", key)
			if err != nil {
				return err
			}
			for j := 0; j < raceIncrements; j++ {
				res, err := rw.UpdateFunc(ctx, r, increment, nil)
				if err != nil {
					return err
				}
				atomic.AddInt64(&attempts, int64(res.Attempts))
				if res.Succeeded() {
					atomic.AddInt64(&applied, 1)
				} else {
					atomic.AddInt64(&exhausted, 1)
				}
			}
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return err
	}

	r, err := db.Load(context.Background(), "counters", key)
	if err != nil {
		return err
	}
	value, _ := r.Get("value")
	fmt.Printf("counter %s\n", utils.TrimForDisplay(key, 8))
	fmt.Printf("  value:     %v (expected %d)\n", value, applied)
	fmt.Printf("  version:   %d\n", r.Version())
	fmt.Printf("  attempts:  %d for %d increments\n", attempts, raceWriters*raceIncrements)
	fmt.Printf("  exhausted: %d\n", exhausted)
	fmt.Printf("  took:      %s\n", time.Since(start).Round(time.Millisecond))

	if racePrintStats {
		fmt.Println()
		metrics.WriteMetrics(os.Stdout)
	}
	return nil
}
