package retry_test

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jonwraymond/iotops/retry"
	"github.com/jonwraymond/iotops/transport"
)

func ExampleExecutor_Run() {
	exec := retry.NewExecutor(retry.ExecutorConfig{
		Policy: retry.Policy{
			MaxRetries:   3,
			MinBackoff:   time.Millisecond,
			MaxBackoff:   5 * time.Millisecond,
			DeltaBackoff: time.Millisecond,
		},
	})

	attempts := 0
	err := exec.Run(context.Background(), "send", func(ctx context.Context) error {
		attempts++
		if attempts < 3 {
			return transport.NewError(transport.KindTransientService, "send", errors.New("server busy"))
		}
		return nil
	})

	fmt.Println("attempts:", attempts)
	fmt.Println("err:", err)
	// Output:
	// attempts: 3
	// err: <nil>
}

func ExampleExecutor_Run_exhausted() {
	exec := retry.NewExecutor(retry.ExecutorConfig{
		Policy: retry.Policy{
			MaxRetries:   2,
			MinBackoff:   time.Millisecond,
			MaxBackoff:   5 * time.Millisecond,
			DeltaBackoff: time.Millisecond,
		},
	})

	err := exec.Run(context.Background(), "send", func(ctx context.Context) error {
		return transport.NewError(transport.KindNetwork, "send", errors.New("connection reset"))
	})

	fmt.Println(errors.Is(err, retry.ErrRetriesExhausted))
	// Output:
	// true
}

func ExamplePolicy_Delay() {
	p := retry.Policy{
		MinBackoff:   100 * time.Millisecond,
		MaxBackoff:   10 * time.Second,
		DeltaBackoff: 100 * time.Millisecond,
	}

	for retryN := 1; retryN <= 4; retryN++ {
		fmt.Println(p.Delay(retryN))
	}
	// Output:
	// 100ms
	// 200ms
	// 400ms
	// 800ms
}

func ExampleTransient() {
	busy := transport.NewError(transport.KindTransientService, "send", errors.New("server busy"))
	denied := transport.NewError(transport.KindUnauthorized, "open", errors.New("bad token"))

	fmt.Println(retry.Transient(busy))
	fmt.Println(retry.Transient(denied))
	fmt.Println(retry.Transient(context.Canceled))
	// Output:
	// true
	// false
	// false
}
