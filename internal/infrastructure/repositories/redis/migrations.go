package redis

import (
	"context"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	schemaVersionKey     = "watchparty:schema:version"
	currentSchemaVersion = 1
)

// Migration represents a schema migration
type Migration struct {
	Version     int
	Description string
	Up          func(ctx context.Context, client *redis.Client) error
}

// Migrate runs all pending migrations
func Migrate(ctx context.Context, client *redis.Client, logger *zap.SugaredLogger) error {
	currentVersion, err := getSchemaVersion(ctx, client)
	if err != nil {
		return fmt.Errorf("failed to get schema version: %w", err)
	}

	if currentVersion >= currentSchemaVersion {
		if logger != nil {
			logger.Infow("schema is up to date",
				"current_version", currentVersion,
				"target_version", currentSchemaVersion,
			)
		}
		return nil
	}

	for _, migration := range getMigrations() {
		if migration.Version <= currentVersion {
			continue
		}
		if logger != nil {
			logger.Infow("running migration",
				"version", migration.Version,
				"description", migration.Description,
			)
		}

		if err := migration.Up(ctx, client); err != nil {
			return fmt.Errorf("migration %d failed: %w", migration.Version, err)
		}
		if err := setSchemaVersion(ctx, client, migration.Version); err != nil {
			return fmt.Errorf("failed to update schema version: %w", err)
		}
	}

	if logger != nil {
		logger.Infow("all migrations completed", "final_version", currentSchemaVersion)
	}
	return nil
}

func getSchemaVersion(ctx context.Context, client *redis.Client) (int, error) {
	val, err := client.Get(ctx, schemaVersionKey).Int()
	if err == redis.Nil {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return val, nil
}

func setSchemaVersion(ctx context.Context, client *redis.Client, version int) error {
	return client.Set(ctx, schemaVersionKey, version, 0).Err()
}

func getMigrations() []Migration {
	return []Migration{
		{
			Version:     1,
			Description: "drop guest sets whose party document is gone",
			Up:          dropOrphanedGuestSets,
		},
	}
}

func dropOrphanedGuestSets(ctx context.Context, client *redis.Client) error {
	iter := client.Scan(ctx, 0, "watchparty:party:*:guests", 100).Iterator()
	for iter.Next(ctx) {
		key := iter.Val()
		partyKey := strings.TrimSuffix(key, ":guests")

		n, err := client.Exists(ctx, partyKey).Result()
		if err != nil {
			return err
		}
		if n > 0 {
			continue
		}

		ids, err := client.SMembers(ctx, key).Result()
		if err != nil {
			return err
		}
		keys := []string{key}
		for _, id := range ids {
			guestKey := partyKey + ":guest:" + id
			keys = append(keys, guestKey, guestKey+":guestCandidates", guestKey+":hostCandidates")
		}
		if err := client.Del(ctx, keys...).Err(); err != nil {
			return err
		}
	}
	return iter.Err()
}
