// Package metadata reads the per-file metadata exported by the data portal
// alongside each VCF.
package metadata

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"ga4gh/loader/models"
	assemblyId "ga4gh/loader/models/constants/assembly-id"
	"ga4gh/loader/models/constants/workflow"

	"github.com/Jeffail/gabs"
	"github.com/mitchellh/mapstructure"
	"github.com/sirupsen/logrus"
)

var ErrNoMetadata = errors.New("no metadata for file")

// SidecarExtension is appended to a VCF path to find its metadata file
const SidecarExtension = ".json"

// portal export paths of each metadata field, keyed by mapstructure tag.
// Array values are reduced to their first element.
var fieldPaths = map[string][]string{
	"filename":         {"fileCopies.fileName", "fileName"},
	"workflow":         {"analysisMethod.software", "workflow"},
	"dataset_id":       {"donors.projectCode", "projectCode"},
	"reference_set_id": {"referenceGenome.referenceName", "referenceGenome.genomeBuild"},
	"sample_id":        {"donors.sampleId", "sampleId"},
	"biosample_id":     {"donors.specimenId", "specimenId"},
	"tumor_aliquot_id": {"donors.otherIdentifiers.tumourAliquotId", "tumorAliquotId"},
}

// Parse decodes one portal file entry.
func Parse(data []byte) (models.FileMetadata, error) {
	parsed, err := gabs.ParseJSON(data)
	if err != nil {
		return models.FileMetadata{}, fmt.Errorf("parsing metadata: %w", err)
	}
	return fromContainer(parsed)
}

// ParseManifest decodes a portal export listing many files, either a JSON
// array or an object holding it under "hits".
func ParseManifest(data []byte) ([]models.FileMetadata, error) {
	parsed, err := gabs.ParseJSON(data)
	if err != nil {
		return nil, fmt.Errorf("parsing manifest: %w", err)
	}
	if parsed.Exists("hits") {
		parsed = parsed.Path("hits")
	}

	if _, ok := parsed.Data().([]interface{}); !ok {
		return nil, errors.New("manifest is not a list")
	}
	children, err := parsed.Children()
	if err != nil {
		return nil, err
	}

	out := make([]models.FileMetadata, 0, len(children))
	for i, child := range children {
		meta, err := fromContainer(child)
		if err != nil {
			return nil, fmt.Errorf("manifest entry %d: %w", i, err)
		}
		out = append(out, meta)
	}
	return out, nil
}

// ForVcf loads the sidecar metadata of vcfPath. Without a sidecar the
// metadata is derived from the file name alone.
func ForVcf(vcfPath string) (models.FileMetadata, error) {
	data, err := os.ReadFile(vcfPath + SidecarExtension)
	if errors.Is(err, os.ErrNotExist) {
		logrus.WithField("file", vcfPath).Debug("no metadata sidecar, deriving from file name")
		return FromFilename(vcfPath), nil
	}
	if err != nil {
		return models.FileMetadata{}, err
	}

	meta, err := Parse(data)
	if err != nil {
		return models.FileMetadata{}, fmt.Errorf("%s: %w", vcfPath, err)
	}
	if meta.Filename == "" {
		meta.Filename = filepath.Base(vcfPath)
	}
	if workflow.CastToWorkflow(meta.Workflow) == workflow.Unknown {
		meta.Workflow = string(workflow.FromFilename(meta.Filename))
	}
	return meta, nil
}

// FromFilename fills what a file name of the form
// <aliquot>.<workflow>_<version>.<date>.<...>.vcf.gz tells.
func FromFilename(path string) models.FileMetadata {
	base := filepath.Base(path)
	aliquot, _, _ := strings.Cut(base, ".")
	return models.FileMetadata{
		Filename:       base,
		Workflow:       string(workflow.FromFilename(base)),
		SampleId:       aliquot,
		TumorAliquotId: aliquot,
	}
}

// Lookup finds the metadata of filename in a parsed manifest.
func Lookup(manifest []models.FileMetadata, filename string) (models.FileMetadata, error) {
	base := filepath.Base(filename)
	for _, m := range manifest {
		if m.Filename == base {
			return m, nil
		}
	}
	return models.FileMetadata{}, fmt.Errorf("%s: %w", base, ErrNoMetadata)
}

func fromContainer(c *gabs.Container) (models.FileMetadata, error) {
	raw := map[string]interface{}{}
	for field, paths := range fieldPaths {
		for _, path := range paths {
			if value, ok := first(c.Path(path).Data()); ok {
				raw[field] = value
				break
			}
		}
	}

	var meta models.FileMetadata
	if err := mapstructure.WeakDecode(raw, &meta); err != nil {
		return models.FileMetadata{}, fmt.Errorf("decoding metadata: %w", err)
	}
	if workflow.CastToWorkflow(meta.Workflow) == workflow.Unknown && meta.Filename != "" {
		meta.Workflow = string(workflow.FromFilename(meta.Filename))
	}
	// assembly names differ in case between exports
	if assemblyId.IsKnownAssemblyId(meta.ReferenceSetId) {
		meta.ReferenceSetId = string(assemblyId.CastToAssemblyId(meta.ReferenceSetId))
	}
	return meta, nil
}

// first unwraps nested arrays down to their first scalar.
func first(data interface{}) (interface{}, bool) {
	for {
		switch v := data.(type) {
		case nil:
			return nil, false
		case []interface{}:
			if len(v) == 0 {
				return nil, false
			}
			data = v[0]
		case map[string]interface{}:
			return nil, false
		case string:
			return v, v != ""
		default:
			return v, true
		}
	}
}
