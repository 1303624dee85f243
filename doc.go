// Package importer implements the statement import workflow of the pcs
// portfolio tool: bank and broker statements (PDF documents) are previewed,
// corrected by the user and committed into portfolios.
//
// The workflow is driven by a Wizard, a small state machine going through
// the select, preview, importing and done steps. Its building blocks are
// usable on their own:
//   - Combine merges the previews of several documents into one
//     CombinedPreview, deduplicating new securities by ISIN.
//   - Ranges maps indices of the combined preview back to the document that
//     owns them, and the document-local index commits are expressed in.
//   - Overrides stores user corrections (transaction kind and fee) apart from
//     the parsed data, which is never modified.
//   - Queue processes documents one at a time, so that progress reports are
//     meaningful and rate-limited extraction providers are not flooded.
//
// Parsing, duplicate detection and persistence are not done here: the wizard
// reaches them through the Backend interface. The backend package provides a
// local implementation on top of a sqlite database.
package importer
