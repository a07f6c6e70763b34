package refreshtokens

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/advn1/rback/internal/common"
	"github.com/advn1/rback/internal/server/models"
	"github.com/redis/go-redis/v9"
)

// DefaultRedisPrefix namespaces every key written by RedisRepository.
const DefaultRedisPrefix = "rback"

// Each row is a hash at {prefix}:rt:{<user id>}:<token hash> expiring with the
// token; {prefix}:rt:{<user id>}:index is the set of the user's token hashes.
// The braces keep one user's keys in one cluster slot so the scripts below
// may touch them together.

const rotateScript = `
if redis.call("HGET", KEYS[1], "used") ~= "0" then
  return 0
end
redis.call("HSET", KEYS[1], "used", "1")
redis.call("HSET", KEYS[2], "user_id", ARGV[2], "name", ARGV[3], "email", ARGV[4], "expires", ARGV[5], "used", "0")
redis.call("PEXPIREAT", KEYS[2], ARGV[5])
redis.call("SADD", KEYS[3], ARGV[1])
return 1
`

const deleteScript = `
local existed = redis.call("DEL", KEYS[1])
redis.call("SREM", KEYS[2], ARGV[1])
return existed
`

var (
	rotateLua = redis.NewScript(rotateScript)
	deleteLua = redis.NewScript(deleteScript)
)

// RedisRepository implements Repository on Redis. Rotation is a single Lua
// script, so it is atomic without an enclosing SQL transaction.
type RedisRepository struct {
	rdb    redis.UniversalClient
	prefix string
	now    func() time.Time
}

// NewRedisRepository returns a repository using rdb. An empty prefix selects
// DefaultRedisPrefix.
func NewRedisRepository(rdb redis.UniversalClient, prefix string) *RedisRepository {
	if prefix == "" {
		prefix = DefaultRedisPrefix
	}
	return &RedisRepository{rdb: rdb, prefix: prefix, now: time.Now}
}

func (r *RedisRepository) tokenKey(userID int64, hash string) string {
	return fmt.Sprintf("%s:rt:{%d}:%s", r.prefix, userID, hash)
}

func (r *RedisRepository) indexKey(userID int64) string {
	return fmt.Sprintf("%s:rt:{%d}:index", r.prefix, userID)
}

// Create stores token and indexes it under its user.
func (r *RedisRepository) Create(ctx context.Context, token *models.RefreshToken) error {
	key := r.tokenKey(token.UserID, token.Token)
	_, err := r.rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.HSet(ctx, key,
			"user_id", token.UserID,
			"name", token.Name,
			"email", token.Email,
			"expires", token.Expires.UnixMilli(),
			"used", "0",
		)
		p.PExpireAt(ctx, key, token.Expires)
		p.SAdd(ctx, r.indexKey(token.UserID), token.Token)
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis error: %w", err)
	}
	token.Used = false
	return nil
}

// ListUnused returns the user's rows that are neither used nor expired.
func (r *RedisRepository) ListUnused(ctx context.Context, userID int64) ([]models.RefreshToken, error) {
	all, err := r.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	now := r.now()
	out := all[:0]
	for _, t := range all {
		if !t.Used && t.Expires.After(now) {
			out = append(out, t)
		}
	}
	return out, nil
}

// ListByUser returns every live row of the user. Index entries whose row has
// expired are pruned on the way.
func (r *RedisRepository) ListByUser(ctx context.Context, userID int64) ([]models.RefreshToken, error) {
	index := r.indexKey(userID)
	hashes, err := r.rdb.SMembers(ctx, index).Result()
	if err != nil {
		return nil, fmt.Errorf("redis error: %w", err)
	}
	if len(hashes) == 0 {
		return nil, nil
	}

	cmds := make([]*redis.MapStringStringCmd, len(hashes))
	_, err = r.rdb.Pipelined(ctx, func(p redis.Pipeliner) error {
		for i, h := range hashes {
			cmds[i] = p.HGetAll(ctx, r.tokenKey(userID, h))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("redis error: %w", err)
	}

	var (
		out   []models.RefreshToken
		stale []any
	)
	for i, cmd := range cmds {
		fields := cmd.Val()
		if len(fields) == 0 {
			stale = append(stale, hashes[i])
			continue
		}
		t, err := decodeToken(hashes[i], fields)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}

	if len(stale) > 0 {
		if err := r.rdb.SRem(ctx, index, stale...).Err(); err != nil {
			return nil, fmt.Errorf("redis error: %w", err)
		}
	}
	return out, nil
}

func decodeToken(hash string, fields map[string]string) (models.RefreshToken, error) {
	userID, err := strconv.ParseInt(fields["user_id"], 10, 64)
	if err != nil {
		return models.RefreshToken{}, fmt.Errorf("redis error: corrupt user_id: %w", err)
	}
	expires, err := strconv.ParseInt(fields["expires"], 10, 64)
	if err != nil {
		return models.RefreshToken{}, fmt.Errorf("redis error: corrupt expires: %w", err)
	}
	return models.RefreshToken{
		Token:   hash,
		UserID:  userID,
		Name:    fields["name"],
		Email:   fields["email"],
		Expires: time.UnixMilli(expires).UTC(),
		Used:    fields["used"] == "1",
	}, nil
}

// Rotate consumes consumedHash and stores next in one script run.
func (r *RedisRepository) Rotate(ctx context.Context, consumedHash string, next *models.RefreshToken) error {
	keys := []string{
		r.tokenKey(next.UserID, consumedHash),
		r.tokenKey(next.UserID, next.Token),
		r.indexKey(next.UserID),
	}
	res, err := rotateLua.Run(ctx, r.rdb, keys,
		next.Token,
		next.UserID,
		next.Name,
		next.Email,
		next.Expires.UnixMilli(),
	).Int64()
	if err != nil {
		return fmt.Errorf("redis error: %w", err)
	}
	if res != 1 {
		return common.ErrInvalidOrExpiredToken
	}
	next.Used = false
	return nil
}

// Delete removes the user's row with the given hash.
func (r *RedisRepository) Delete(ctx context.Context, userID int64, hash string) (int64, error) {
	n, err := deleteLua.Run(ctx, r.rdb,
		[]string{r.tokenKey(userID, hash), r.indexKey(userID)},
		hash,
	).Int64()
	if err != nil {
		return 0, fmt.Errorf("redis error: %w", err)
	}
	return n, nil
}
