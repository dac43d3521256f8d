// Package redis connects to Redis with retries and exposes a readiness
// probe. The notifier uses it to back the role membership cache.
//
//	client, err := redis.Connect(ctx, cfg)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	probes = append(probes, redis.Healthcheck(client))
package redis
