package reporting

import (
	"context"
	"fmt"
	"time"

	"github.com/JakeFAU/zerovo-site/internal/metricstore"
)

// ExampleHub_Emit forwards a sample and flushes it on Close.
func ExampleHub_Emit() {
	var total float64
	hub := NewHub(Config{MaxBatch: 1, MaxWait: time.Second}, SinkFunc(func(_ context.Context, batch []metricstore.Sample) error {
		for _, s := range batch {
			total += s.CalLoadTime
		}
		return nil
	}))

	hub.Emit(metricstore.Sample{ID: "30min", CalLoadTime: 840})
	if err := hub.Close(context.Background()); err != nil {
		panic(err)
	}

	fmt.Printf("load time forwarded: %.0fms\n", total)
	// Output:
	// load time forwarded: 840ms
}
