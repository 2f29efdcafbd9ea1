package kv

import (
	"fmt"

	"github.com/oursky/agent-manager/pkg/utils/defaults"
	"go.uber.org/zap"
)

type Type string

const (
	TypeInMemory      Type = "InMemory"
	TypeFS            Type = "FS"
	TypeRedis         Type = "Redis"
	TypeKubeConfigMap Type = "KubeConfigMap"
)

type Config struct {
	Type          Type    `validate:"omitempty,oneof=InMemory FS Redis KubeConfigMap"`
	Path          string  `validate:"required_if=Type FS"`
	RedisAddr     string  `validate:"required_if=Type Redis"`
	RedisPassword string
	RedisDB       int
	RedisPrefix   *string
	KubeNamespace string `validate:"required_if=Type KubeConfigMap"`
}

func (c *Config) GetRedisPrefix() string {
	return defaults.Value(c.RedisPrefix, "agent-manager")
}

func NewStore(logger *zap.Logger, config *Config) (Store, error) {
	switch config.Type {
	case TypeInMemory, "":
		return NewInMemoryStore(), nil

	case TypeFS:
		return NewFSStore(logger, config.Path), nil

	case TypeRedis:
		return NewRedisStore(logger, config)

	case TypeKubeConfigMap:
		return NewKubeConfigMapStore(logger, config.KubeNamespace)
	}
	return nil, fmt.Errorf("invalid kv store type: %s", config.Type)
}
