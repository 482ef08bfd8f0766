package redis

import (
	"context"
	"fmt"
	"time"

	redis "github.com/go-redis/redis/v8"
)

func Set(ctx context.Context, key, value string, expiration time.Duration) error {
	err := GetRedisInst().SetNX(ctx, key, value, expiration).Err()
	if err != nil {
		return fmt.Errorf("failed to set %s: %v", key, err)
	}
	return nil
}

func Get(ctx context.Context, key string) (string, error) {
	val, err := GetRedisInst().Get(ctx, key).Result()
	if err == redis.Nil {
		return "", redis.Nil
	} else if err != nil {
		return "", fmt.Errorf("failed to get %s: %v", key, err)
	}

	return val, nil
}

func Exists(ctx context.Context, key string) (bool, error) {
	val, err := GetRedisInst().Exists(ctx, key).Result()
	if err != nil {
		return false, fmt.Errorf("%s: %v", key, err)
	}

	if val > 0 {
		return true, nil
	} else {
		return false, nil
	}
}
