// Package vcf reads variant records out of VCF files, plain or bgzipped.
package vcf

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"ga4gh/loader/models"
	"ga4gh/loader/models/constants/chromosome"
	"ga4gh/loader/utils"

	"github.com/biogo/hts/bgzf"
	"github.com/sirupsen/logrus"
)

var (
	ErrMissingHeader   = errors.New("vcf: no #CHROM header line")
	ErrMalformedRecord = errors.New("vcf: malformed record")
)

const maxLineBytes = 64 << 20

// Reader yields the records of one VCF file in file order. Records on
// contigs other than the human chromosomes are skipped.
type Reader struct {
	closers []io.Closer
	scanner *bufio.Scanner

	samples []string
	line    int
	skipped int
}

// Open reads path, decompressing it with bgzf when it ends in .gz.
func Open(path string) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}

	var src io.Reader = f
	closers := []io.Closer{f}
	if strings.HasSuffix(path, ".gz") {
		bg, err := bgzf.NewReader(f, 0)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		src = bg
		closers = append([]io.Closer{bg}, closers...)
	}

	r, err := NewReader(src)
	if err != nil {
		for _, c := range closers {
			c.Close()
		}
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	r.closers = closers
	return r, nil
}

// NewReader consumes the meta-information lines of src up to and including
// the #CHROM header.
func NewReader(src io.Reader) (*Reader, error) {
	scanner := bufio.NewScanner(src)
	scanner.Buffer(make([]byte, 64*1024), maxLineBytes)

	r := &Reader{scanner: scanner}
	for scanner.Scan() {
		r.line++
		line := scanner.Text()
		if !strings.HasPrefix(line, "#CHROM") {
			continue
		}

		for _, header := range strings.Split(line, "\t") {
			// anything that is not a default VCF column is a sample id
			if !utils.StringInSlice(strings.ToLower(strings.TrimSpace(strings.ReplaceAll(header, "#", ""))), models.VcfHeaders) {
				r.samples = append(r.samples, strings.TrimSpace(header))
			}
		}
		logrus.WithField("samples", r.samples).Debug("found the vcf headers")
		return r, nil
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return nil, ErrMissingHeader
}

// Samples lists the genotype column names in file order.
func (r *Reader) Samples() []string { return r.samples }

// Skipped is the number of records dropped for their contig so far.
func (r *Reader) Skipped() int { return r.skipped }

// Next returns the next record, or io.EOF once the file is exhausted.
func (r *Reader) Next() (models.RawVariantRecord, error) {
	for r.scanner.Scan() {
		r.line++
		line := r.scanner.Text()
		if line == "" || line[0] == '#' {
			continue
		}

		rec, ok, err := r.parse(line)
		if err != nil {
			return models.RawVariantRecord{}, fmt.Errorf("line %d: %w", r.line, err)
		}
		if !ok {
			r.skipped++
			continue
		}
		return rec, nil
	}
	if err := r.scanner.Err(); err != nil {
		return models.RawVariantRecord{}, err
	}
	return models.RawVariantRecord{}, io.EOF
}

func (r *Reader) Close() error {
	var errs []error
	for _, c := range r.closers {
		errs = append(errs, c.Close())
	}
	r.closers = nil
	return errors.Join(errs...)
}

func (r *Reader) parse(line string) (models.RawVariantRecord, bool, error) {
	fields := strings.Split(line, "\t")
	fixed := len(models.VcfHeaders) - 1
	if len(fields) < fixed {
		return models.RawVariantRecord{}, false, fmt.Errorf("%d columns: %w", len(fields), ErrMalformedRecord)
	}

	if !chromosome.IsValidHumanChromosome(fields[0]) {
		return models.RawVariantRecord{}, false, nil
	}

	pos, err := strconv.ParseInt(strings.TrimSpace(fields[1]), 10, 64)
	if err != nil || pos < 1 {
		return models.RawVariantRecord{}, false, fmt.Errorf("position %q: %w", fields[1], ErrMalformedRecord)
	}

	rec := models.RawVariantRecord{
		ReferenceName:  chromosome.Normalize(fields[0]),
		Start:          pos - 1,
		ReferenceBases: strings.ToUpper(strings.TrimSpace(fields[3])),
		AlternateBases: splitAlternates(fields[4]),
		Info:           parseInfo(fields[7]),
	}
	rec.End = rec.Start + int64(len(rec.ReferenceBases))
	if end, err := strconv.ParseInt(rec.Info["END"], 10, 64); err == nil && end > rec.Start {
		rec.End = end
	}

	if len(fields) > fixed+1 {
		format := strings.Split(fields[fixed], ":")
		for i, column := range fields[fixed+1:] {
			name := ""
			if i < len(r.samples) {
				name = r.samples[i]
			}
			rec.Genotypes = append(rec.Genotypes, parseGenotype(name, format, column, rec.ReferenceBases, rec.AlternateBases))
		}
	}
	return rec, true, nil
}

func splitAlternates(value string) []string {
	value = strings.TrimSpace(value)
	if value == "" || value == "." {
		return nil
	}
	alts := strings.Split(strings.ToUpper(value), ",")
	return alts
}

func parseInfo(value string) map[string]string {
	value = strings.TrimSpace(value)
	if value == "" || value == "." {
		return nil
	}

	info := map[string]string{}
	for _, entry := range strings.Split(value, ";") {
		if entry == "" {
			continue
		}
		if k, v, found := strings.Cut(entry, "="); found {
			info[k] = v
		} else {
			// flags carry no value
			info[entry] = ""
		}
	}
	return info
}

// parseGenotype maps the GT indices of a sample column back to allele
// bases. Out of range indices are kept verbatim so that allele resolution
// rejects them.
func parseGenotype(name string, format []string, column string, ref string, alts []string) models.RawGenotype {
	g := models.RawGenotype{SampleName: name}

	values := strings.Split(column, ":")
	for i, key := range format {
		if i >= len(values) {
			break
		}
		value := values[i]

		switch key {
		case "GT":
			g.Phased = strings.Contains(value, "|")
			for _, token := range strings.FieldsFunc(value, func(r rune) bool { return r == '|' || r == '/' }) {
				g.Alleles = append(g.Alleles, alleleBases(token, ref, alts))
			}
		case "GQ":
			if l, err := strconv.ParseFloat(value, 64); err == nil {
				g.Likelihood = l
				g.HasLikelihood = true
			}
			fallthrough
		default:
			if g.Attributes == nil {
				g.Attributes = map[string]string{}
			}
			g.Attributes[key] = value
		}
	}
	return g
}

func alleleBases(token string, ref string, alts []string) string {
	if token == "." {
		return token
	}
	idx, err := strconv.Atoi(token)
	switch {
	case err != nil || idx < 0:
		return token
	case idx == 0:
		return ref
	case idx <= len(alts):
		return alts[idx-1]
	default:
		return token
	}
}
