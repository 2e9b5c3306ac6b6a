// Package frequency queries a remote variant service for population allele
// frequencies and VEP consequence annotations.
package frequency

import (
	"errors"
	"fmt"
	"strings"
)

// ErrSchema is returned when a response body lacks a required field.
var ErrSchema = errors.New("unexpected response schema")

// Response is the subset of the variant service JSON body used for annotation.
// Pointer fields distinguish a missing key from a zero value.
type Response struct {
	AlleleFreq     *float64         `json:"allele_freq"`
	VEPAnnotations *[]VEPAnnotation `json:"vep_annotations"`
}

// VEPAnnotation is one transcript-level consequence annotation.
type VEPAnnotation struct {
	MajorConsequence *string `json:"major_consequence"`
}

// Validate checks that every field read during annotation is present.
func (r *Response) Validate() error {
	if r.AlleleFreq == nil {
		return fmt.Errorf("%w: missing allele_freq", ErrSchema)
	}
	if r.VEPAnnotations == nil {
		return fmt.Errorf("%w: missing vep_annotations", ErrSchema)
	}
	for i, a := range *r.VEPAnnotations {
		if a.MajorConsequence == nil {
			return fmt.Errorf("%w: vep_annotations[%d] has no major_consequence", ErrSchema, i)
		}
	}
	return nil
}

// Consequences returns the major consequence terms in response order.
// Call Validate first.
func (r *Response) Consequences() []string {
	if r.VEPAnnotations == nil {
		return nil
	}
	terms := make([]string, 0, len(*r.VEPAnnotations))
	for _, a := range *r.VEPAnnotations {
		if a.MajorConsequence != nil {
			terms = append(terms, *a.MajorConsequence)
		}
	}
	return terms
}

// NewResponse builds a valid Response from plain values.
func NewResponse(alleleFreq float64, consequences []string) *Response {
	terms := append([]string(nil), consequences...)
	anns := make([]VEPAnnotation, len(terms))
	for i := range terms {
		anns[i] = VEPAnnotation{MajorConsequence: &terms[i]}
	}
	return &Response{AlleleFreq: &alleleFreq, VEPAnnotations: &anns}
}

// VariantID formats the service identifier CHROM-POS-REF-ALT for one allele.
func VariantID(chrom, pos, ref, alt string) string {
	return strings.Join([]string{chrom, pos, ref, alt}, "-")
}
