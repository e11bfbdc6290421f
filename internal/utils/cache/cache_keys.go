package cache

import "fmt"

type EntityType string

const (
	EntitySetting EntityType = "setting"
	EntityRate    EntityType = "rate"
)

type KeyType string

const KeyAll KeyType = "all"

// GenerateKey creates a standardized cache key
func GenerateKey(entity EntityType, keyType KeyType, value interface{}) string {
	return fmt.Sprintf("%s:%s:%v", entity, keyType, value)
}
