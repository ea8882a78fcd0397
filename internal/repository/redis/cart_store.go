package redis

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/grcspl/storefront/internal/config"
	"github.com/grcspl/storefront/internal/domain"
)

const (
	keyPrefix = "storefront:cart:"
	// orderField keeps line order, since hash fields come back unordered
	orderField = "_order"
)

type cartStore struct {
	client *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

// NewClient opens a go-redis client and checks the server answers
func NewClient(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return client, nil
}

// NewCartStore stores each cart as one hash of product code to quantity.
// A ttl of zero keeps carts forever.
func NewCartStore(client *redis.Client, ttl time.Duration, logger *zap.Logger) *cartStore {
	return &cartStore{client: client, ttl: ttl, logger: logger}
}

func (s *cartStore) Load(ctx context.Context, cartID string) ([]domain.CartLine, error) {
	fields, err := s.client.HGetAll(ctx, keyPrefix+cartID).Result()
	if err != nil {
		s.logger.Error("Failed to load cart", zap.String("cart_id", cartID), zap.Error(err))
		return nil, err
	}
	if len(fields) == 0 {
		return nil, nil
	}

	var codes []string
	seen := make(map[string]bool)
	if order := fields[orderField]; order != "" {
		for _, code := range strings.Split(order, ",") {
			if _, ok := fields[code]; ok && !seen[code] {
				codes = append(codes, code)
				seen[code] = true
			}
		}
	}
	var rest []string
	for code := range fields {
		if code != orderField && !seen[code] {
			rest = append(rest, code)
		}
	}
	sort.Strings(rest)
	codes = append(codes, rest...)

	lines := make([]domain.CartLine, 0, len(codes))
	for _, code := range codes {
		qty, err := strconv.Atoi(fields[code])
		if err != nil {
			s.logger.Warn("Skipping malformed cart line", zap.String("cart_id", cartID), zap.String("product_code", code))
			continue
		}
		lines = append(lines, domain.CartLine{ProductCode: code, Quantity: qty})
	}
	return lines, nil
}

func (s *cartStore) Save(ctx context.Context, cartID string, lines []domain.CartLine) error {
	key := keyPrefix + cartID
	if len(lines) == 0 {
		return s.Clear(ctx, cartID)
	}

	values := make([]interface{}, 0, len(lines)*2+2)
	codes := make([]string, 0, len(lines))
	for _, line := range lines {
		values = append(values, line.ProductCode, strconv.Itoa(line.Quantity))
		codes = append(codes, line.ProductCode)
	}
	values = append(values, orderField, strings.Join(codes, ","))

	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, key)
		pipe.HSet(ctx, key, values...)
		if s.ttl > 0 {
			pipe.Expire(ctx, key, s.ttl)
		}
		return nil
	})
	if err != nil {
		s.logger.Error("Failed to save cart", zap.String("cart_id", cartID), zap.Error(err))
		return err
	}
	return nil
}

func (s *cartStore) Clear(ctx context.Context, cartID string) error {
	if err := s.client.Del(ctx, keyPrefix+cartID).Err(); err != nil {
		s.logger.Error("Failed to clear cart", zap.String("cart_id", cartID), zap.Error(err))
		return err
	}
	return nil
}
