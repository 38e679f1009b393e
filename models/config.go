package models

import (
	"ga4gh/loader/models/constants"
)

type Config struct {
	Debug bool `yaml:"debug" envconfig:"LOADER_DEBUG"`
	Api   struct {
		Url     string `yaml:"url" envconfig:"LOADER_API_URL"`
		Port    string `yaml:"port" envconfig:"LOADER_API_INTERNAL_PORT" default:"5000"`
		VcfPath string `yaml:"vcfPath" envconfig:"LOADER_API_VCF_PATH"`
	} `yaml:"api"`
	Store struct {
		Type                      constants.StorageType `yaml:"type" envconfig:"LOADER_STORE_TYPE" default:"memory"`
		Dir                       string                `yaml:"dir" envconfig:"LOADER_STORE_DIR" default:"./store"`
		ForceNew                  bool                  `yaml:"forceNew" envconfig:"LOADER_STORE_FORCE_NEW"`
		HybridCapacityBytes       int64                 `yaml:"hybridCapacityBytes" envconfig:"LOADER_STORE_HYBRID_CAPACITY_BYTES" default:"268435456"`
		CheckpointIntervalSeconds int                   `yaml:"checkpointIntervalSeconds" envconfig:"LOADER_STORE_CHECKPOINT_INTERVAL_SECONDS" default:"60"`
		VariantIdInitial          uint64                `yaml:"variantIdInitial" envconfig:"LOADER_STORE_VARIANT_ID_INITIAL"`
		VariantSetIdInitial       uint32                `yaml:"variantSetIdInitial" envconfig:"LOADER_STORE_VARIANT_SET_ID_INITIAL"`
		CallSetIdInitial          uint32                `yaml:"callSetIdInitial" envconfig:"LOADER_STORE_CALL_SET_ID_INITIAL"`
	} `yaml:"store"`
	Elasticsearch struct {
		Url         string `yaml:"url" envconfig:"LOADER_ES_URL"`
		Username    string `yaml:"username" envconfig:"LOADER_ES_USERNAME"`
		Password    string `yaml:"password" envconfig:"LOADER_ES_PASSWORD"`
		BulkWorkers int    `yaml:"bulkWorkers" envconfig:"LOADER_ES_BULK_WORKERS" default:"4"`
	} `yaml:"elasticsearch"`
}
