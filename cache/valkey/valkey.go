// Package valkey provides a Valkey-backed cache.Store using the official
// Valkey client.
package valkey

import (
	"context"
	"time"

	"github.com/valkey-io/valkey-go"

	"github.com/chatkitd/chatkitd/cache"
)

const connectionTimeout = 5 * time.Second

func init() {
	cache.Register("valkey", New)
	cache.Register("valkeys", New)
}

// Client is a Valkey-backed cache implementation.
type Client struct {
	client valkey.Client
}

// New connects to the Valkey instance named by the DSN and verifies the
// connection before returning.
func New(opts cache.Options) (cache.Store, error) {
	valkeyOpts, err := valkey.ParseURL(opts.DSN.String())
	if err != nil {
		return nil, err
	}

	client, err := valkey.NewClient(valkeyOpts)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), connectionTimeout)
	defer cancel()

	if pingErr := client.Do(ctx, client.B().Ping().Build()).Error(); pingErr != nil {
		client.Close()
		return nil, pingErr
	}

	return &Client{client: client}, nil
}

func (vc *Client) Get(ctx context.Context, key string) ([]byte, bool, error) {
	resp := vc.client.Do(ctx, vc.client.B().Get().Key(key).Build())

	if err := resp.Error(); err != nil {
		if valkey.IsValkeyNil(err) {
			return nil, false, nil
		}
		return nil, false, err
	}

	val, err := resp.AsBytes()
	if err != nil {
		return nil, false, err
	}
	return val, true, nil
}

func (vc *Client) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	var cmd valkey.Completed
	if ttl > 0 {
		// Ex() expects whole seconds.
		seconds := int64(ttl.Seconds())
		if seconds == 0 {
			seconds = 1
		}
		cmd = vc.client.B().Set().Key(key).Value(valkey.BinaryString(value)).ExSeconds(seconds).Build()
	} else {
		cmd = vc.client.B().Set().Key(key).Value(valkey.BinaryString(value)).Build()
	}
	return vc.client.Do(ctx, cmd).Error()
}

func (vc *Client) Delete(ctx context.Context, key string) error {
	return vc.client.Do(ctx, vc.client.B().Del().Key(key).Build()).Error()
}

func (vc *Client) Exists(ctx context.Context, key string) (bool, error) {
	resp := vc.client.Do(ctx, vc.client.B().Exists().Key(key).Build())
	if err := resp.Error(); err != nil {
		return false, err
	}

	count, err := resp.AsInt64()
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (vc *Client) Expire(ctx context.Context, key string, ttl time.Duration) error {
	if ttl <= 0 {
		return vc.client.Do(ctx, vc.client.B().Persist().Key(key).Build()).Error()
	}

	seconds := int64(ttl.Seconds())
	if seconds == 0 {
		seconds = 1
	}
	return vc.client.Do(ctx, vc.client.B().Expire().Key(key).Seconds(seconds).Build()).Error()
}

// Increment atomically increments a counter.
func (vc *Client) Increment(ctx context.Context, key string, delta int64) (int64, error) {
	resp := vc.client.Do(ctx, vc.client.B().Incrby().Key(key).Increment(delta).Build())
	if err := resp.Error(); err != nil {
		return 0, err
	}
	return resp.AsInt64()
}

func (vc *Client) SupportsPerKeyTTL() bool {
	return true
}

func (vc *Client) Close() error {
	vc.client.Close()
	return nil
}
