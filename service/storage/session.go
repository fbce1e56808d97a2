package storage

import (
	"context"
	"fmt"
	"time"

	"QChat/logger"
	redisSrv "QChat/service/storage/redis"
	"QChat/tools/errs"

	"github.com/redis/go-redis/v9"
)

func sessionKey(userID string) string {
	return fmt.Sprintf("qchat:session:%s", userID)
}

// SaveSession records the active token hash for a user. A fresh login
// replaces the previous record, revoking the old token.
func SaveSession(ctx context.Context, userID, tokenHash string, ttl time.Duration) error {
	rdb := redisSrv.GetRedis()
	if rdb == nil {
		return nil
	}
	return rdb.Set(ctx, sessionKey(userID), tokenHash, ttl).Err()
}

// CheckSession verifies that the presented token hash is still the active one.
// Redis being down degrades to signature-only validation: the check passes and
// a warning is logged, so an auth-store outage never locks everyone out.
func CheckSession(ctx context.Context, userID, tokenHash string) error {
	rdb := redisSrv.GetRedis()
	if rdb == nil {
		return nil
	}
	stored, err := rdb.Get(ctx, sessionKey(userID)).Result()
	if err == redis.Nil {
		return errs.ErrUnauthorized.WrapMsg("session revoked or expired")
	}
	if err != nil {
		logger.Warnf("[storage] session check degraded, redis: %v", err)
		return nil
	}
	if stored != tokenHash {
		return errs.ErrUnauthorized.WrapMsg("token superseded by a newer login")
	}
	return nil
}

// DeleteSession drops the session record (logout).
func DeleteSession(ctx context.Context, userID string) error {
	rdb := redisSrv.GetRedis()
	if rdb == nil {
		return nil
	}
	return rdb.Del(ctx, sessionKey(userID)).Err()
}
