// Package search implements the ranking primitives behind retrieval: a
// BM25 (Okapi) scorer over pre-tokenized corpora and reciprocal rank
// fusion for merging dense and sparse result lists.
package search
