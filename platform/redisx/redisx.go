// Package redisx builds Redis connection settings from a REDIS_URL.
package redisx

import (
	"crypto/tls"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// Options parses redisURL. tlsInsecure disables certificate verification for
// rediss:// URLs and forces TLS on plain ones.
func Options(redisURL string, tlsInsecure bool) (*redis.Options, error) {
	if redisURL == "" {
		return nil, fmt.Errorf("redis url not configured")
	}
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}

	if opt.TLSConfig != nil {
		clone := opt.TLSConfig.Clone()
		if tlsInsecure {
			clone.InsecureSkipVerify = true
		}
		opt.TLSConfig = clone
	} else if tlsInsecure {
		opt.TLSConfig = &tls.Config{InsecureSkipVerify: true}
	}
	return opt, nil
}

// NewClient returns a go-redis client for redisURL.
func NewClient(redisURL string, tlsInsecure bool) (*redis.Client, error) {
	opt, err := Options(redisURL, tlsInsecure)
	if err != nil {
		return nil, err
	}
	return redis.NewClient(opt), nil
}
