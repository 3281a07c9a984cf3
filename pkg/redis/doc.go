// Package redis connects to Redis with go-redis/v9.
//
// Connect retries until the server answers a PING, and Healthcheck returns a
// readiness probe. The monthly AI generation counter in svc/workspace is the
// main consumer.
//
//	client, err := redis.Connect(ctx, cfg)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
package redis
