package redis

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"
	redis "github.com/redis/go-redis/v9"
)

const flightKeyPrefix = "pdfagent:flight:"

// releaseScript deletes the key only while it still holds our token, so a
// lock that expired and was taken by another replica is left alone.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// FlightGuard marks a session as having a request outstanding, visible to
// every replica sharing the redis instance.
type FlightGuard struct {
	client *Client
	token  string
}

func NewFlightGuard(client *Client) *FlightGuard {
	return &FlightGuard{client: client, token: uuid.NewString()}
}

func flightKey(sessionID string) string {
	return flightKeyPrefix + sessionID
}

// Acquire reports false when another holder owns the session's flight.
func (g *FlightGuard) Acquire(ctx context.Context, sessionID string, ttl time.Duration) (bool, error) {
	ok, err := g.client.SetNX(ctx, flightKey(sessionID), g.token, ttl)
	if err != nil || ok {
		return ok, err
	}
	if left, err := g.Remaining(ctx, sessionID); err == nil {
		log.Printf("[redis] flight for %s held elsewhere, expires in %s", sessionID, left)
	}
	return false, nil
}

// Remaining reports how long the current holder keeps the session's flight.
// It is zero or negative when nobody holds it.
func (g *FlightGuard) Remaining(ctx context.Context, sessionID string) (time.Duration, error) {
	return g.client.TTL(ctx, flightKey(sessionID))
}

func (g *FlightGuard) Release(ctx context.Context, sessionID string) error {
	raw := g.client.Raw()
	if raw == nil {
		return errNotInitialized
	}
	return releaseScript.Run(ctx, raw, []string{flightKey(sessionID)}, g.token).Err()
}
