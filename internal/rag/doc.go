// Package rag implements the query-time answering pipeline: query
// normalization, vector retrieval, context assembly, prompt
// construction, generation, and conversational memory.
//
// Every component converts backend failure into a defined fallback
// value at its own boundary, so a request always produces a
// well-formed response. The Pipeline composes the components and owns
// the one catch-all failure boundary for a whole turn.
package rag
