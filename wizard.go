package importer

import (
	"context"
	"errors"
	"fmt"
	"log"
	"path/filepath"
	"strings"
	"sync"

	"github.com/shopspring/decimal"
)

// Step is a step of the import wizard.
type Step int

// Wizard steps, in order.
const (
	StepSelect    Step = iota // no document loaded yet
	StepPreview               // at least one document parsed, overrides and targets editable
	StepImporting             // commit calls in flight
	StepDone                  // terminal, see Outcome
)

func (s Step) String() string {
	switch s {
	case StepSelect:
		return "select"
	case StepPreview:
		return "preview"
	case StepImporting:
		return "importing"
	case StepDone:
		return "done"
	default:
		return fmt.Sprintf("Step(%d)", int(s))
	}
}

// Settings are the external settings the wizard starts from.
type Settings struct {
	// DeliveryMode turns every parsed Buy into a TransferIn right after parsing.
	DeliveryMode         bool
	AutoCreateSecurities bool
	SkipDuplicates       bool
}

// Phase names the sequence a Progress report belongs to.
type Phase string

const (
	PhaseParsing    Phase = "parsing"
	PhaseCommitting Phase = "committing"
)

// Progress is reported before each document of a sequence is processed.
type Progress struct {
	Phase   Phase
	Current int // 1-based
	Total   int
	File    string
}

// ErrBusy is returned when an operation is requested while a parse or commit
// sequence is running.
var ErrBusy = errors.New("an import operation is already running")

// Option configures a Wizard.
type Option func(*Wizard)

// WithSettings sets the external settings.
func WithSettings(s Settings) Option { return func(w *Wizard) { w.settings = s } }

// WithQueue sets the queue documents are processed with.
func WithQueue(q *Queue) Option { return func(w *Wizard) { w.queue = q } }

// WithProgress sets the progress callback. It is called from the queue's
// goroutines, without the wizard lock held.
func WithProgress(f func(Progress)) Option { return func(w *Wizard) { w.progress = f } }

// WithLogger sets the logger. Defaults to log.Default().
func WithLogger(l *log.Logger) Option { return func(w *Wizard) { w.logger = l } }

type document struct {
	preview   DocumentPreview
	portfolio int64
	assigned  bool
}

// Wizard is the multi-document import state machine:
//
//	select → preview → importing → done
//
// It owns the documents, their previews, the overrides and the commit
// targets; nothing else mutates them. Backend calls are made one document at
// a time through the Queue, without holding the wizard lock, so Close can
// interrupt a running sequence.
type Wizard struct {
	backend  Backend
	picker   FilePicker
	settings Settings
	queue    *Queue
	progress func(Progress)
	logger   *log.Logger

	mu         sync.Mutex
	generation uint64
	cancel     context.CancelFunc // of the running sequence, nil when idle

	step           Step
	docs           []document
	failures       []string // "name: message" of documents that failed to parse
	combined       CombinedPreview
	ranges         Ranges
	overrides      Overrides
	account        int64
	hasAccount     bool
	autoCreate     bool
	skipDuplicates bool
	assisted       *ProviderConfig // nil for structured extraction
	consent        bool
	outcome        *Outcome
}

// New returns a wizard in the select step.
func New(backend Backend, picker FilePicker, opts ...Option) *Wizard {
	w := &Wizard{
		backend:  backend,
		picker:   picker,
		queue:    Sequential(),
		progress: func(Progress) {},
		logger:   log.Default(),
	}
	for _, opt := range opts {
		opt(w)
	}
	w.autoCreate = w.settings.AutoCreateSecurities
	w.skipDuplicates = w.settings.SkipDuplicates
	return w
}

// SelectFiles asks the picker for documents and parses them. A cancelled
// selection changes nothing and calls no backend operation. In the preview
// step the new documents are added to the ones already loaded.
func (w *Wizard) SelectFiles(ctx context.Context) error {
	files, err := w.picker.PickFiles(ctx)
	if err != nil {
		return fmt.Errorf("cannot pick files: %w", err)
	}
	if len(files) == 0 {
		return nil
	}
	return w.ParseAll(ctx, files)
}

// ParseAll previews files one after the other.
//
// A file that fails is reported as a warning of the combined preview and does
// not stop the others. If every file fails, ParseAll returns a *ParseError
// and the wizard stays where it was. Otherwise the parsed documents are
// appended to the loaded ones and the wizard moves to the preview step.
func (w *Wizard) ParseAll(ctx context.Context, files []string) error {
	if len(files) == 0 {
		return nil
	}

	w.mu.Lock()
	if w.cancel != nil {
		w.mu.Unlock()
		return ErrBusy
	}
	if w.step != StepSelect && w.step != StepPreview {
		w.mu.Unlock()
		return fmt.Errorf("cannot add documents in step %s", w.step)
	}
	var provider *ProviderConfig
	if w.assisted != nil {
		if !w.consent {
			w.mu.Unlock()
			return ErrConsentRequired
		}
		cfg := *w.assisted
		cfg.Consent = true
		provider = &cfg
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	gen := w.generation
	w.cancel = cancel
	w.mu.Unlock()

	previews := make([]DocumentPreview, len(files))
	errs := w.queue.Run(ctx, len(files), func(ctx context.Context, i int) error {
		path := files[i]
		w.progress(Progress{Phase: PhaseParsing, Current: i + 1, Total: len(files), File: DisplayName(path)})
		if !isPDF(path) {
			return errors.New("not a PDF document")
		}
		var p DocumentPreview
		var err error
		if provider != nil {
			p, err = w.backend.PreviewDocumentAssisted(ctx, path, *provider)
		} else {
			p, err = w.backend.PreviewDocument(ctx, path)
		}
		if err != nil {
			return err
		}
		if p.Source.Path == "" {
			p.Source = NewSource(path)
		}
		previews[i] = p
		return nil
	})

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.generation != gen {
		// closed or reset while parsing: the results belong to a discarded session.
		return context.Canceled
	}
	w.cancel = nil

	var parsed []DocumentPreview
	var failed []string
	var failedErrs []error
	for i, err := range errs {
		name := DisplayName(files[i])
		if err != nil {
			w.logger.Printf("cannot preview %q: %v", files[i], err)
			failed = append(failed, name)
			failedErrs = append(failedErrs, fmt.Errorf("%s: %w", name, err))
			continue
		}
		parsed = append(parsed, previews[i])
	}

	if len(parsed) == 0 {
		return &ParseError{Files: failed, Errs: failedErrs}
	}

	from := w.ranges.Total()
	for _, p := range parsed {
		w.docs = append(w.docs, document{preview: p})
	}
	for _, err := range failedErrs {
		w.failures = append(w.failures, err.Error())
	}
	w.recompute()
	w.postParse(from)
	w.step = StepPreview
	return nil
}

// postParse is the hook run exactly once after each successful parse batch,
// on the transactions appended by that batch.
func (w *Wizard) postParse(from int) {
	if w.settings.DeliveryMode {
		n := ApplyDeliveryMode(&w.overrides, w.combined, from)
		w.logger.Printf("delivery mode: %d buy transactions turned into inbound transfers", n)
	}
}

// recompute derives the combined preview and the range table from the documents.
func (w *Wizard) recompute() {
	previews := make([]DocumentPreview, len(w.docs))
	for i, d := range w.docs {
		previews[i] = d.preview
	}
	w.combined = Combine(previews)
	w.combined.Warnings = append(w.combined.Warnings, w.failures...)
	w.ranges = NewRanges(previews)
}

func isPDF(path string) bool { return strings.EqualFold(filepath.Ext(path), ".pdf") }

// editable returns an error unless overrides and targets can be edited.
func (w *Wizard) editable() error {
	if w.step != StepPreview {
		return fmt.Errorf("cannot edit the import in step %s", w.step)
	}
	return nil
}

func (w *Wizard) checkIndex(i int) error {
	if err := w.editable(); err != nil {
		return err
	}
	if i < 0 || i >= len(w.combined.Transactions) {
		return fmt.Errorf("transaction %d out of range [0, %d)", i, len(w.combined.Transactions))
	}
	return nil
}

// SetType overrides the kind of the combined transaction i.
func (w *Wizard) SetType(i int, k Kind) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.checkIndex(i); err != nil {
		return err
	}
	if !k.Valid() {
		return fmt.Errorf("invalid transaction kind %d", int(k))
	}
	w.overrides.SetType(i, k)
	return nil
}

// ClearType removes the kind override of the combined transaction i.
func (w *Wizard) ClearType(i int) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.checkIndex(i); err != nil {
		return err
	}
	w.overrides.ClearType(i)
	return nil
}

// SetFee overrides the fee of the combined transaction i.
func (w *Wizard) SetFee(i int, fee decimal.Decimal) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.checkIndex(i); err != nil {
		return err
	}
	if fee.IsNegative() {
		return fmt.Errorf("fee cannot be negative, got %s", fee)
	}
	w.overrides.SetFee(i, fee)
	return nil
}

// ClearFee removes the fee override of the combined transaction i.
func (w *Wizard) ClearFee(i int) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.checkIndex(i); err != nil {
		return err
	}
	w.overrides.ClearFee(i)
	return nil
}

// SetAllTypes sets the kind of every combined transaction to k, replacing
// every previous kind override.
func (w *Wizard) SetAllTypes(k Kind) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.editable(); err != nil {
		return err
	}
	if !k.Valid() {
		return fmt.Errorf("invalid transaction kind %d", int(k))
	}
	w.overrides.SetAllTypes(len(w.combined.Transactions), k)
	return nil
}

// AssignPortfolio sets the target portfolio of document doc.
func (w *Wizard) AssignPortfolio(doc int, portfolio int64) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.editable(); err != nil {
		return err
	}
	if doc < 0 || doc >= len(w.docs) {
		return fmt.Errorf("document %d out of range [0, %d)", doc, len(w.docs))
	}
	w.docs[doc].portfolio = portfolio
	w.docs[doc].assigned = true
	return nil
}

// AssignAllPortfolios sets the target portfolio of every loaded document.
func (w *Wizard) AssignAllPortfolios(portfolio int64) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.editable(); err != nil {
		return err
	}
	for i := range w.docs {
		w.docs[i].portfolio = portfolio
		w.docs[i].assigned = true
	}
	return nil
}

// SelectAccount sets the account shared by every document.
func (w *Wizard) SelectAccount(account int64) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.editable(); err != nil {
		return err
	}
	w.account = account
	w.hasAccount = true
	return nil
}

// SetAutoCreateSecurities sets whether unknown securities are created on commit.
func (w *Wizard) SetAutoCreateSecurities(v bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.autoCreate = v
}

// SetSkipDuplicates sets whether potential duplicates are skipped on commit.
func (w *Wizard) SetSkipDuplicates(v bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.skipDuplicates = v
}

// CanCommit reports whether every document has a portfolio and an account is
// selected.
func (w *Wizard) CanCommit() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.canCommit()
}

func (w *Wizard) canCommit() bool {
	if w.step != StepPreview || len(w.docs) == 0 || !w.hasAccount || w.cancel != nil {
		return false
	}
	for _, d := range w.docs {
		if !d.assigned {
			return false
		}
	}
	return true
}

// CommitAll commits every document one after the other.
//
// A document that fails is recorded in the outcome and does not stop the
// others. The returned error is only about the wizard itself: ErrNotReady
// when the targets are incomplete, or context.Canceled when the wizard was
// closed meanwhile.
func (w *Wizard) CommitAll(ctx context.Context) (Outcome, error) {
	w.mu.Lock()
	if w.cancel != nil {
		w.mu.Unlock()
		return Outcome{}, ErrBusy
	}
	if !w.canCommit() {
		w.mu.Unlock()
		return Outcome{}, ErrNotReady
	}
	types := SplitByDocument(w.ranges, w.overrides.Types())
	fees := SplitByDocument(w.ranges, w.overrides.Fees())
	reqs := make([]CommitRequest, len(w.docs))
	names := make([]string, len(w.docs))
	for i, d := range w.docs {
		names[i] = d.preview.Source.Name
		reqs[i] = CommitRequest{
			Path:                 d.preview.Source.Path,
			Token:                d.preview.Token,
			PortfolioID:          d.portfolio,
			AccountID:            w.account,
			AutoCreateSecurities: w.autoCreate,
			SkipDuplicates:       w.skipDuplicates,
			TypeOverrides:        types[i],
			FeeOverrides:         fees[i],
		}
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	gen := w.generation
	w.cancel = cancel
	w.step = StepImporting
	w.mu.Unlock()

	results := make([]CommitResult, len(reqs))
	errs := w.queue.Run(ctx, len(reqs), func(ctx context.Context, i int) error {
		w.progress(Progress{Phase: PhaseCommitting, Current: i + 1, Total: len(reqs), File: names[i]})
		r, err := w.backend.CommitDocument(ctx, reqs[i])
		results[i] = r
		return err
	})

	var outcome Outcome
	for i, err := range errs {
		if err != nil {
			w.logger.Printf("cannot commit %q: %v", reqs[i].Path, err)
			outcome.Fail(names[i], err)
			continue
		}
		outcome.Add(names[i], results[i])
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.generation != gen {
		return outcome, context.Canceled
	}
	w.cancel = nil
	w.outcome = &outcome
	w.step = StepDone
	return outcome, nil
}

// EnableAssistedExtraction makes subsequent parses go through the AI
// provider described by cfg. Consent must still be granted.
func (w *Wizard) EnableAssistedExtraction(cfg ProviderConfig) {
	w.mu.Lock()
	defer w.mu.Unlock()
	cfg.Consent = false
	w.assisted = &cfg
}

// DisableAssistedExtraction goes back to structured extraction.
func (w *Wizard) DisableAssistedExtraction() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.assisted = nil
}

// AssistedExtraction returns the provider used for assisted extraction, if enabled.
func (w *Wizard) AssistedExtraction() (ProviderConfig, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.assisted == nil {
		return ProviderConfig{}, false
	}
	cfg := *w.assisted
	cfg.Consent = w.consent
	return cfg, true
}

// GrantConsent records that the user accepted sending documents to the
// assisted extraction provider. It lasts until the wizard is closed.
func (w *Wizard) GrantConsent() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.consent = true
}

// RevokeConsent withdraws the consent.
func (w *Wizard) RevokeConsent() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.consent = false
}

// Consent reports whether the user consented to assisted extraction.
func (w *Wizard) Consent() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.consent
}

// Reset starts over: documents, overrides, targets and outcome are dropped and
// a running sequence is cancelled. Assisted extraction settings and consent
// survive, they belong to the session.
func (w *Wizard) Reset() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.reset()
}

// Close discards the whole session, consent included, and cancels any
// running sequence. The wizard is back in its initial state.
func (w *Wizard) Close() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.reset()
	w.assisted = nil
	w.consent = false
}

func (w *Wizard) reset() {
	if w.cancel != nil {
		w.cancel()
		w.cancel = nil
	}
	w.generation++
	w.step = StepSelect
	w.docs = nil
	w.failures = nil
	w.combined = CombinedPreview{}
	w.ranges = nil
	w.overrides.Reset()
	w.account, w.hasAccount = 0, false
	w.autoCreate = w.settings.AutoCreateSecurities
	w.skipDuplicates = w.settings.SkipDuplicates
	w.outcome = nil
}

// Targets lists the portfolios and accounts a document can be imported into,
// retired ones excluded.
func (w *Wizard) Targets(ctx context.Context) ([]Portfolio, []Account, error) {
	portfolios, err := w.backend.ListPortfolios(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("cannot list portfolios: %w", err)
	}
	accounts, err := w.backend.ListAccounts(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("cannot list accounts: %w", err)
	}
	return ActivePortfolios(portfolios), ActiveAccounts(accounts), nil
}

// Step returns the current step.
func (w *Wizard) Step() Step {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.step
}

// Documents returns the previews of the loaded documents.
func (w *Wizard) Documents() []DocumentPreview {
	w.mu.Lock()
	defer w.mu.Unlock()
	previews := make([]DocumentPreview, len(w.docs))
	for i, d := range w.docs {
		previews[i] = d.preview
	}
	return previews
}

// Files returns the paths of the loaded documents.
func (w *Wizard) Files() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	files := make([]string, len(w.docs))
	for i, d := range w.docs {
		files[i] = d.preview.Source.Path
	}
	return files
}

// Combined returns the combined preview.
func (w *Wizard) Combined() CombinedPreview {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.combined
}

// Ranges returns the document range table of the combined preview.
func (w *Wizard) Ranges() Ranges {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append(Ranges(nil), w.ranges...)
}

// TypeOverrides returns a copy of the kind overrides, by global index.
func (w *Wizard) TypeOverrides() map[int]Kind {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.overrides.Types()
}

// FeeOverrides returns a copy of the fee overrides, by global index.
func (w *Wizard) FeeOverrides() map[int]decimal.Decimal {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.overrides.Fees()
}

// Effective returns the combined transaction i with its overrides applied,
// and whether any override applies to it.
func (w *Wizard) Effective(i int) (tx CombinedTransaction, overridden bool, ok bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if i < 0 || i >= len(w.combined.Transactions) {
		return CombinedTransaction{}, false, false
	}
	tx = w.combined.Transactions[i]
	_, typed := w.overrides.Type(i)
	_, feed := w.overrides.Fee(i)
	tx.ParsedTransaction = w.overrides.Resolve(i, tx.ParsedTransaction)
	return tx, typed || feed, true
}

// Portfolio returns the portfolio assigned to document doc.
func (w *Wizard) Portfolio(doc int) (int64, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if doc < 0 || doc >= len(w.docs) || !w.docs[doc].assigned {
		return 0, false
	}
	return w.docs[doc].portfolio, true
}

// Account returns the selected account.
func (w *Wizard) Account() (int64, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.account, w.hasAccount
}

// Outcome returns the outcome of the last commit, once in the done step.
func (w *Wizard) Outcome() (Outcome, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.outcome == nil {
		return Outcome{}, false
	}
	return *w.outcome, true
}
