package coord

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	redis "github.com/redis/go-redis/v9"

	reserrors "github.com/testforge/reslock/v1/errors"
)

// Leases live as keys <prefix><resource> holding the owner token with a PX
// TTL. Both scripts check every key before touching any of them, so a batch
// is granted or released as a whole within one script invocation.
var acquireScript = redis.NewScript(`
for i, key in ipairs(KEYS) do
    local v = redis.call("GET", key)
    if v and v ~= ARGV[1] then
        return {key, v, redis.call("PTTL", key)}
    end
end
for i, key in ipairs(KEYS) do
    redis.call("SET", key, ARGV[1], "PX", ARGV[2])
end
return 1
`)

var releaseScript = redis.NewScript(`
for i, key in ipairs(KEYS) do
    local v = redis.call("GET", key)
    if v and v ~= ARGV[1] then
        return {key, v, redis.call("PTTL", key)}
    end
end
for i, key in ipairs(KEYS) do
    if redis.call("GET", key) == ARGV[1] then
        redis.call("DEL", key)
    end
end
return 1
`)

const defaultPrefix = "reslock:"

// RedisClient implements Client against a Redis backend.
type RedisClient struct {
	client     *redis.Client
	ownsClient bool
	token      string
	prefix     string
	closed     bool
}

// RedisOptions configures a RedisClient. Either Client or Addr must be set;
// when only Addr is given the RedisClient dials and owns the connection.
type RedisOptions struct {
	Client   *redis.Client
	Addr     string
	Password string
	DB       int

	// Prefix namespaces lease keys, "reslock:" by default.
	Prefix string
	// Token identifies this holder to other processes. A fresh UUID is
	// generated when empty.
	Token string
}

// NewRedis returns a new Redis-backed coordination client.
func NewRedis(opts RedisOptions) *RedisClient {
	c := &RedisClient{
		client: opts.Client,
		token:  opts.Token,
		prefix: opts.Prefix,
	}
	if c.client == nil {
		c.client = redis.NewClient(&redis.Options{
			Addr:     opts.Addr,
			Password: opts.Password,
			DB:       opts.DB,
		})
		c.ownsClient = true
	}
	if c.token == "" {
		c.token = uuid.NewString()
	}
	if c.prefix == "" {
		c.prefix = defaultPrefix
	}
	return c
}

// Token returns the holder identity this client presents to the service.
func (c *RedisClient) Token() string {
	return c.token
}

// Connect implements Client.Connect.
func (c *RedisClient) Connect(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// Acquire implements Client.Acquire.
func (c *RedisClient) Acquire(ctx context.Context, resources []string, ttl time.Duration) (*Conflict, error) {
	if c.closed {
		return nil, reserrors.ErrConnectionClosed
	}
	if len(resources) == 0 {
		return nil, nil
	}
	res, err := acquireScript.Run(ctx, c.client, c.keys(resources), c.token, ttl.Milliseconds()).Result()
	if err != nil {
		return nil, err
	}
	return c.conflictFromReply(res), nil
}

// Release implements Client.Release.
func (c *RedisClient) Release(ctx context.Context, resources []string) (*Conflict, error) {
	if c.closed {
		return nil, reserrors.ErrConnectionClosed
	}
	if len(resources) == 0 {
		return nil, nil
	}
	res, err := releaseScript.Run(ctx, c.client, c.keys(resources), c.token).Result()
	if err != nil {
		return nil, err
	}
	return c.conflictFromReply(res), nil
}

// Close implements Client.Close.
func (c *RedisClient) Close() error {
	if c.closed {
		return reserrors.ErrConnectionClosed
	}
	c.closed = true
	if c.ownsClient {
		return c.client.Close()
	}
	return nil
}

func (c *RedisClient) keys(resources []string) []string {
	keys := make([]string, len(resources))
	for i, r := range resources {
		keys[i] = c.prefix + r
	}
	return keys
}

// conflictFromReply decodes the script reply: integer 1 means the whole
// batch went through, a {key, holder, pttl} table names the blocker.
func (c *RedisClient) conflictFromReply(res any) *Conflict {
	arr, ok := res.([]any)
	if !ok || len(arr) != 3 {
		return nil
	}
	key, _ := arr[0].(string)
	holder, _ := arr[1].(string)
	pttl, _ := arr[2].(int64)
	remaining := time.Duration(pttl) * time.Millisecond
	if pttl < 0 {
		remaining = 0
	}
	return &Conflict{
		Resource:  strings.TrimPrefix(key, c.prefix),
		Holder:    holder,
		Remaining: remaining,
	}
}
