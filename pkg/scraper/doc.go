// Package scraper wires the pipeline stages together: credential bootstrap,
// discovery, extraction, image caching and the final JSON write. Stages are
// consumed through small interfaces so the orchestration logic tests
// without a browser or network.
package scraper
