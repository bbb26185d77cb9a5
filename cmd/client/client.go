package main

import (
	"context"
	"flag"
	"fmt"
	"strconv"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

var addr = flag.String("address", "localhost:6379", "redis address of a coral node")

func main() {
	flag.Parse()

	if err := run(); err != nil {
		fmt.Printf("%+v\n", err)
	}
}

func run() error {
	ctx := context.Background()
	c := redis.NewClient(&redis.Options{Addr: *addr})
	defer c.Close()

	for i := 0; 100 > i; i++ {
		key := "key-" + strconv.Itoa(i)
		if err := c.Set(ctx, key, time.Now().String(), 0).Err(); err != nil {
			return errors.WithStack(err)
		}

		v, err := c.Get(ctx, key).Result()
		if err != nil {
			return errors.WithStack(err)
		}
		fmt.Println("Put " + key + " = " + v)
	}

	locks, err := c.Do(ctx, "LOCKS").Result()
	if err != nil {
		return errors.WithStack(err)
	}
	fmt.Println(locks)

	return nil
}
