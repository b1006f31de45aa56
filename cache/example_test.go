package cache_test

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jonwraymond/tariffops/cache"
)

func ExampleKey() {
	key := cache.Key("calculatedTariff", "calculateTotalTariff", "ITEM-001", "CHN")
	prefix, digest, _ := strings.Cut(key, ":")
	fmt.Println(prefix, len(digest))
	// Output: calculatedTariff 64
}

func ExampleThrough() {
	acc := cache.NewAccessor(cache.NewMemoryCache())
	ctx := context.Background()

	load := func(context.Context) (string, bool, error) {
		fmt.Println("loading")
		return "12.5", true, nil
	}

	for i := 0; i < 2; i++ {
		v, _, _ := cache.Through(ctx, acc, "tariff:demo", time.Hour, load)
		fmt.Println(v)
	}
	// Output:
	// loading
	// 12.5
	// 12.5
}
