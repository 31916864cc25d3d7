package redis

import "github.com/redis/rueidis"

// NewStoreForTest wraps an injected rueidis client (pairs with rueidis/mock).
func NewStoreForTest(c rueidis.Client) *Store {
	return &Store{client: c}
}
