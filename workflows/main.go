package workflows

import (
	c "ga4gh/loader/models/constants"
	a "ga4gh/loader/models/constants/assembly-id"
	"ga4gh/loader/models/constants/workflow"
)

type WorkflowSchema map[string]interface{}

// WORKFLOW_INGESTION_SCHEMA describes the inputs accepted by /ingestion/run
var WORKFLOW_INGESTION_SCHEMA WorkflowSchema = map[string]interface{}{
	"ingestion": map[string]interface{}{
		"vcf": map[string]interface{}{
			"name":        "VCF Identity Aggregation",
			"description": "This ingestion workflow assigns stable ids to the variants, variant sets and call sets of a VCF and aggregates its calls.",
			"data_type":   "variant",
			"tags":        []string{"variant"},
			"type":        "ingestion",
			"inputs": []map[string]interface{}{
				{
					"id":       "fileNames",
					"type":     "file[]",
					"required": true,
					"pattern":  "^.*\\.vcf(\\.gz)?$",
				},
				{
					"id":       "workflow",
					"type":     "enum",
					"required": false,
					"values":   workflow.All,
				},
				{
					"id":       "reference_set_id",
					"type":     "enum",
					"required": false,
					"values":   []c.AssemblyId{a.GRCh38, a.GRCh37, a.NCBI36},
				},
			},
		},
	},
	"export": map[string]interface{}{
		"elasticsearch": map[string]interface{}{
			"name":        "Elasticsearch Export",
			"description": "Writes every aggregated variant, variant set and call set to Elasticsearch.",
			"type":        "export",
			"inputs":      []map[string]interface{}{},
		},
	},
}
