package main

import (
	"context"
	"time"

	"bitbucket.org/lgugso/assets_backend/config"
	"bitbucket.org/lgugso/assets_backend/models"
	"github.com/bsm/redislock"
	"github.com/sirupsen/logrus"
)

const cacheRefreshInterval = 5 * time.Minute

// runCacheRefresher periodically re-primes the registry list caches so the
// read endpoints stay warm after ingestion bursts. A redis lock keeps a
// single runner across instances; losing the lock just skips the tick.
func runCacheRefresher(ctx context.Context, logger *logrus.Logger) {
	ticker := time.NewTicker(cacheRefreshInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		locker := config.GetRedisLock()
		if locker == nil {
			continue
		}

		lock, err := locker.Obtain(ctx, "lock:ppe-cache-refresh", cacheRefreshInterval/2, nil)
		if err == redislock.ErrNotObtained {
			continue
		}
		if err != nil {
			logger.WithFields(logrus.Fields{"field": "cacheRefresher"}).Warn("error obtaining refresh lock: " + err.Error())
			continue
		}

		_ = config.RemoveRedisKey(models.PpeEntryListCacheKey, models.ItemListCacheKey)
		if _, err := models.FetchAllPpeEntries(ctx); err != nil {
			logger.WithFields(logrus.Fields{"field": "cacheRefresher"}).Warn("failed to refresh entry list cache: " + err.Error())
		}
		if _, err := models.FetchAllItems(ctx); err != nil {
			logger.WithFields(logrus.Fields{"field": "cacheRefresher"}).Warn("failed to refresh item list cache: " + err.Error())
		}

		if releaseErr := lock.Release(ctx); releaseErr != nil && releaseErr != redislock.ErrLockNotHeld {
			logger.WithFields(logrus.Fields{"field": "cacheRefresher"}).Warn("failed to release refresh lock: " + releaseErr.Error())
		}
	}
}
