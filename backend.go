package importer

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// FilePicker lets the user choose the documents to import. An empty result
// means the user cancelled and is not an error.
type FilePicker interface {
	PickFiles(ctx context.Context) ([]string, error)
}

// Previewer parses a document without persisting anything.
type Previewer interface {
	PreviewDocument(ctx context.Context, path string) (DocumentPreview, error)
}

// AssistedPreviewer parses a document by sending it to a third-party AI
// provider. It must only be called with ProviderConfig.Consent set.
type AssistedPreviewer interface {
	PreviewDocumentAssisted(ctx context.Context, path string, cfg ProviderConfig) (DocumentPreview, error)
}

// Committer persists the transactions of one previewed document.
type Committer interface {
	CommitDocument(ctx context.Context, req CommitRequest) (CommitResult, error)
}

// Catalog lists the import targets. Retired records are included and must be
// filtered out by the caller.
type Catalog interface {
	ListPortfolios(ctx context.Context) ([]Portfolio, error)
	ListAccounts(ctx context.Context) ([]Account, error)
}

// Backend is everything the wizard needs from the application backend.
type Backend interface {
	Previewer
	AssistedPreviewer
	Committer
	Catalog
}

// ProviderConfig selects the AI provider used by assisted extraction.
type ProviderConfig struct {
	Provider string
	Model    string
	APIKey   string
	// Consent is set once the user accepted that the document content leaves
	// the machine for Provider.
	Consent bool
}

// String never prints the API key.
func (c ProviderConfig) String() string {
	return fmt.Sprintf("%s/%s", c.Provider, c.Model)
}

// Disclosure is the data-sharing notice the user must accept before
// documents are sent to the provider.
func (c ProviderConfig) Disclosure() string {
	return fmt.Sprintf("Assisted extraction sends the whole content of every document to %s (model %s). "+
		"This includes account numbers, IBANs, balances and personal data such as your name and address. "+
		"Nothing is sent until you type `consent yes`.", c.Provider, c.Model)
}

var (
	// ErrConsentRequired is returned when assisted extraction is attempted
	// before the user accepted the data-sharing disclosure.
	ErrConsentRequired = errors.New("assisted extraction requires explicit consent to send the document to the provider")

	// ErrNotReady is returned by CommitAll when a document has no portfolio or
	// no account is selected.
	ErrNotReady = errors.New("every document needs a portfolio and an account must be selected")
)

// ParseError reports that no document of a batch could be parsed.
// It unwraps to the error of every file.
type ParseError struct {
	Files []string
	Errs  []error
}

func (e *ParseError) Error() string {
	msgs := make([]string, len(e.Errs))
	for i, err := range e.Errs {
		msgs[i] = err.Error()
	}
	return fmt.Sprintf("none of the %d documents could be read:\n%s", len(e.Errs), strings.Join(msgs, "\n"))
}

func (e *ParseError) Unwrap() []error { return e.Errs }
