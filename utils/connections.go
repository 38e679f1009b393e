package utils

import (
	"time"

	"github.com/cenkalti/backoff"
	"github.com/elastic/go-elasticsearch/v7"
	"github.com/sirupsen/logrus"
)

func CreateEsConnection(elasticsearchUrl string, elasticsearchUsername string, elasticsearchPassword string) (*elasticsearch.Client, error) {
	var (
		clusterURLs  = []string{elasticsearchUrl}
		retryBackoff = backoff.NewExponentialBackOff()
	)

	cfg := elasticsearch.Config{
		Addresses: clusterURLs,
		Username:  elasticsearchUsername,
		Password:  elasticsearchPassword,

		RetryOnStatus: []int{502, 503, 504, 429},

		// Configure the backoff function
		//
		RetryBackoff: func(i int) time.Duration {
			if i == 1 {
				retryBackoff.Reset()
			}
			return retryBackoff.NextBackOff()
		},

		// Retry up to 5 attempts
		//
		MaxRetries: 5,
	}

	es7Client, err := elasticsearch.NewClient(cfg)
	if err != nil {
		return nil, err
	}

	logrus.WithField("url", elasticsearchUrl).Infof("Using ES7 Client Version %s", elasticsearch.Version)

	return es7Client, nil
}
