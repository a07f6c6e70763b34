package repomanager

import (
	"github.com/advn1/rback/internal/dbx"
	"github.com/advn1/rback/internal/server/repositories/refreshtokens"
	"github.com/redis/go-redis/v9"
)

// RedisRepositoryManager keeps identities in PostgreSQL and refresh tokens in
// Redis. The DBTX handed to RefreshTokens is ignored: Redis rotation is atomic
// on its own and does not join the SQL transaction.
type RedisRepositoryManager struct {
	*PostgresRepositoryManager
	rdb    redis.UniversalClient
	prefix string
}

// NewRedisRepositoryManager returns a manager whose session store lives in rdb
// under prefix.
func NewRedisRepositoryManager(rdb redis.UniversalClient, prefix string) *RedisRepositoryManager {
	return &RedisRepositoryManager{
		PostgresRepositoryManager: NewPostgresRepositoryManager(),
		rdb:                       rdb,
		prefix:                    prefix,
	}
}

// RefreshTokens returns the Redis-backed session store.
func (m *RedisRepositoryManager) RefreshTokens(_ dbx.DBTX) refreshtokens.Repository {
	return refreshtokens.NewRedisRepository(m.rdb, m.prefix)
}
