package domain

// ── Collaborator interfaces ────────────────────────────────
// The vault core never implements UI, network, or format specifics;
// hosts plug these in per call (Codec) or per adapter (Ingestor,
// Validator).

// Codec serializes one flat row record to/from file text. Export and
// import must use matching codecs for a given bundle; the orchestrator
// enforces this with an extension check.
type Codec interface {
	ID() string
	FileExtension() string
	MIMEType() string
	Parse(text string) (Row, error)
	Stringify(row Row) (string, error)
}

// File is a raw input handed to ingest or parsed out of a bundle.
type File struct {
	Name string
	Data []byte
}

// Ingestor parses one external raw file format into a dataset,
// bypassing the bundle/codec path. Selection is first-match.
type Ingestor interface {
	Matches(f File) bool
	Parse(f File) (Dataset, error)
}

// Validator checks a dataset's shape. An empty slice means valid.
type Validator interface {
	Validate(ds Dataset) []Issue
}

// ValidatorFunc adapts a plain function to the Validator interface.
type ValidatorFunc func(ds Dataset) []Issue

func (f ValidatorFunc) Validate(ds Dataset) []Issue { return f(ds) }
