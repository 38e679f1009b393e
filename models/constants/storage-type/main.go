package storageType

import (
	"ga4gh/loader/models/constants"
	"strings"
)

const (
	Unknown    constants.StorageType = ""
	Memory     constants.StorageType = "memory"
	Persistent constants.StorageType = "persistent"
	Hybrid     constants.StorageType = "hybrid"
)

func CastToStorageType(text string) constants.StorageType {
	switch strings.ToLower(strings.TrimSpace(text)) {
	case "memory", "mem":
		return Memory
	case "persistent", "disk":
		return Persistent
	case "hybrid":
		return Hybrid
	default:
		return Unknown
	}
}

func IsKnownStorageType(text string) bool {
	return CastToStorageType(text) != Unknown
}
