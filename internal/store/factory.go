package store

import (
	"github.com/redis/go-redis/v9"
)

type Stores struct {
	client *redis.Client
	prefix string
}

func NewStores(client *redis.Client, keyPrefix string) *Stores {
	return &Stores{client: client, prefix: keyPrefix}
}

func (s *Stores) Boards() BoardStore {
	return NewBoardStore(s.client, s.prefix)
}
