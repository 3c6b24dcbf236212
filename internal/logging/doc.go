// Package logging provides slog construction with console and JSON handlers,
// standardized field names, and a sampler that bounds progress write rates.
package logging
