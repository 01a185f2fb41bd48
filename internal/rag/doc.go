// Package rag implements the two document-chat pipelines: ingestion
// (extract, limit-check, split, embed, store) and answering (rewrite
// with history, session-scoped retrieval, grounded generation).
//
// The package owns the prompts and the pipeline policy: which question
// goes to retrieval (the rewritten one) versus generation (the
// original), when rewriting is skipped, and what happens when no
// context is found. Model access goes through the Generator interface
// so tests can run the full pipelines without a live model.
package rag
