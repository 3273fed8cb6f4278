// Package importers turns an uploaded card file into validated, optionally
// AI-enhanced cards plus an import report.
//
// # Architecture
//
// One call to Orchestrator.ProcessFile walks a Session through:
//
//	idle → detecting → parsing → validating → (enhancing) → reporting → idle
//
// Format and parse failures divert to error-reporting and come back as
// entries of Outcome.Errors; ProcessFile itself only fails when the session
// is already busy.
//
//   - detecting: parsers.Detect, cached per session by file name and content hash
//   - parsing: parsers.Parser (Markdown fallback chain, standard and alternate JSON)
//   - validating: Validate, name and type are the only mandatory fields
//   - enhancing: an Enhancer, only for error-free, non-empty imports with AI on
//   - reporting: BuildResult, notifications and the audit trail
//
// Sessions are explicit and owned by the caller (usually a Store). A
// session runs one ProcessFile at a time; concurrent calls get ErrSessionBusy.
//
// # Example Usage
//
//	orchestrator := importers.NewOrchestrator(parser, enhancer, importers.Config{AIEnabled: true}, logger)
//	session := store.Create()
//
//	outcome, err := orchestrator.ProcessFile(ctx, session, importers.RawFile{Name: "gear.md", Reader: f}, entities.CategoryGear)
//	if errors.Is(err, importers.ErrSessionBusy) {
//		// another import is still running on this session
//	}
package importers
