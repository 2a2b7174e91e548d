package main

import (
	"context"
	"fmt"

	myMongoRepo "github.com/Miraines/MoonyAndStarry/social-auth/internal/adapters/db/mongo"
	myPostgresRepo "github.com/Miraines/MoonyAndStarry/social-auth/internal/adapters/db/postgres"
	myRedisRepo "github.com/Miraines/MoonyAndStarry/social-auth/internal/adapters/db/redis"
	repo "github.com/Miraines/MoonyAndStarry/social-auth/internal/domain/auth/repo"
	"github.com/Miraines/MoonyAndStarry/social-auth/internal/infra/config"
	"github.com/Miraines/MoonyAndStarry/social-auth/internal/infra/health"
	"github.com/Miraines/MoonyAndStarry/social-auth/internal/infra/migrate"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type stores struct {
	users   repo.UserRepo
	tokens  repo.TokenRepo
	checker *health.Checker
	closers []func()
}

func (s *stores) Close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
}

// openStores connects only the backends USER_STORE and SESSION_STORE name.
func openStores(ctx context.Context, cfg *config.Config, checker *health.Checker, log *zap.Logger) (*stores, error) {
	s := &stores{checker: checker}
	uses := func(kind string) bool { return cfg.UserStore == kind || cfg.SessionStore == kind }

	var db *gorm.DB
	if uses(config.StorePostgres) {
		var err error
		if db, err = myPostgresRepo.Open(cfg.DatabaseURL, log); err != nil {
			return nil, fmt.Errorf("connect to database: %w", err)
		}
		sqlDB, err := db.DB()
		if err != nil {
			return nil, fmt.Errorf("db handle: %w", err)
		}
		s.closers = append(s.closers, func() { _ = sqlDB.Close() })
		if err := migrate.Up(sqlDB); err != nil {
			s.Close()
			return nil, fmt.Errorf("run migrations: %w", err)
		}
		checker.Add(config.StorePostgres, health.SQL(sqlDB))
	}

	var mdb *mongo.Database
	if uses(config.StoreMongo) {
		client, err := myMongoRepo.Connect(ctx, cfg.MongoURI, log)
		if err != nil {
			s.Close()
			return nil, err
		}
		s.closers = append(s.closers, func() { _ = client.Disconnect(context.Background()) })
		mdb = client.Database(cfg.MongoDatabase)
		if err := myMongoRepo.EnsureIndexes(ctx, mdb); err != nil {
			s.Close()
			return nil, fmt.Errorf("mongo indexes: %w", err)
		}
		checker.Add(config.StoreMongo, health.Mongo(client))
	}

	switch cfg.UserStore {
	case config.StorePostgres:
		s.users = myPostgresRepo.NewPostgresUserRepo(db)
	case config.StoreMongo:
		s.users = myMongoRepo.NewMongoUserRepo(mdb)
	}

	switch cfg.SessionStore {
	case config.StorePostgres:
		s.tokens = myPostgresRepo.NewPostgresTokenRepo(db)
	case config.StoreMongo:
		s.tokens = myMongoRepo.NewMongoTokenRepo(mdb)
	case config.StoreRedis:
		redisCli := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddress,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		s.closers = append(s.closers, func() { _ = redisCli.Close() })
		if err := redisCli.Ping(ctx).Err(); err != nil {
			s.Close()
			return nil, fmt.Errorf("ping redis: %w", err)
		}
		checker.Add(config.StoreRedis, health.Redis(redisCli))
		s.tokens = myRedisRepo.NewRedisTokenRepo(redisCli)
	}
	return s, nil
}
